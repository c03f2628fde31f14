package ui

import (
	"fmt"
	"image/color"
	"log"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/nevisdale/nescore/internal/nes"
)

// P - pause
// R - one step and stop
// D - draw the pattern tables into the screen

type UI struct {
	console *nes.Console
	disasm  map[uint16]string

	screen *ebiten.Image
	// pixels is the RGBA copy of the RGB framebuffer
	pixels []byte
	err    error
}

func New(console *nes.Console) *UI {
	return &UI{
		console: console,
		disasm:  console.Disassemble(0x8000, 0xffff),
		screen:  ebiten.NewImage(nes.ScreenWidth, nes.ScreenHeight),
		pixels:  make([]byte, nes.ScreenWidth*nes.ScreenHeight*4),
	}
}

func (ui *UI) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		ui.console.TogglePause()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		ui.console.OneStepAndStop()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		ui.console.DrawPatternTables()
	}

	// a fatal error pauses the console, the window stays open to inspect it
	if err := ui.console.RunFrame(); err != nil {
		log.Printf("console stopped: %s", err)
		ui.err = err
	}
	return nil
}

func (ui *UI) Draw(screen *ebiten.Image) {
	regs := ui.console.Registers()
	var infoStr strings.Builder
	fmt.Fprintf(&infoStr, " FPS: %0.0f\n", ebiten.ActualFPS())
	fmt.Fprintf(&infoStr, " FRAME: %d\n", ui.console.Frame())
	fmt.Fprintf(&infoStr, " STATUS: %s\n", regs.P)
	fmt.Fprintf(&infoStr, " PC: %04X\n", regs.PC)
	fmt.Fprintf(&infoStr, " A: $%02X [%03d]", regs.A, regs.A)
	fmt.Fprintf(&infoStr, " X: $%02X [%03d]", regs.X, regs.X)
	fmt.Fprintf(&infoStr, " Y: $%02X [%03d]\n", regs.Y, regs.Y)
	fmt.Fprintf(&infoStr, " SP: $%02X\n", regs.SP)
	if ui.console.Paused() {
		infoStr.WriteString(" PAUSED\n")
	}
	if ui.err != nil {
		fmt.Fprintf(&infoStr, " %s\n", ui.err)
	}

	for i := max(0, int(regs.PC)-7); i < int(regs.PC); i++ {
		if line, ok := ui.disasm[uint16(i)]; ok {
			infoStr.WriteString(" " + line + "\n")
		}
	}
	infoStr.WriteString("*" + ui.disasm[regs.PC] + "\n")
	for i := int(regs.PC) + 1; i < min(0xffff, int(regs.PC)+7); i++ {
		if line, ok := ui.disasm[uint16(i)]; ok {
			infoStr.WriteString(" " + line + "\n")
		}
	}

	debugScreenOffsetX := float32(gameScreenWidth * gameScreenScale)
	vector.DrawFilledRect(screen, debugScreenOffsetX, 0, debugScreenWidth, debugScreenHeight, color.RGBA{50, 50, 50, 255}, false)
	ebitenutil.DebugPrintAt(screen, infoStr.String(), int(debugScreenOffsetX), 0)

	for i := 0; i < 2; i++ {
		tilesImg := ebiten.NewImageFromImage(ui.console.PatternTable(i))
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(debugScreenOffsetX)+10+(float64(i)*(128+5)), debugScreenHeight-128-10)
		screen.DrawImage(tilesImg, op)
	}

	rgbToRGBA(ui.pixels, ui.console.Framebuffer())
	ui.screen.WritePixels(ui.pixels)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(gameScreenScale, gameScreenScale)
	screen.DrawImage(ui.screen, op)
}

func rgbToRGBA(dst, src []byte) {
	for i, j := 0, 0; i+2 < len(src) && j+3 < len(dst); i, j = i+3, j+4 {
		dst[j] = src[i]
		dst[j+1] = src[i+1]
		dst[j+2] = src[i+2]
		dst[j+3] = 0xff
	}
}

const (
	gameScreenScale  = 2
	gameScreenWidth  = nes.ScreenWidth
	gameScreenHeight = nes.ScreenHeight

	debugScreenWidth  = 286
	debugScreenHeight = gameScreenHeight * gameScreenScale
)

func (ui *UI) Layout(_, _ int) (int, int) {
	return gameScreenWidth*gameScreenScale + debugScreenWidth, gameScreenHeight * gameScreenScale
}

func RunUI(ui *UI) error {
	ebiten.SetWindowTitle("nescore")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	screenSizeX, screenSizeY := gameScreenWidth*gameScreenScale+debugScreenWidth, gameScreenHeight*gameScreenScale
	ebiten.SetWindowSize(screenSizeX, screenSizeY)
	ebiten.SetTPS(60)
	return ebiten.RunGame(ui)
}
