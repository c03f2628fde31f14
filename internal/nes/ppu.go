package nes

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

const (
	ScreenWidth  = 256
	ScreenHeight = 240

	// last cycle index of a scanline, 341 cycles per line
	lastCycle         = 340
	vblankScanline    = 241
	lastScanline      = 261
	preRenderScanline = -1

	ctrlIncrement32 = 0x04
	ctrlNMI         = 0x80
	statusVBlank    = 0x80

	paletteStart = 0x3f00
)

var ErrIllegalStatusWrite = errors.New("write to the read-only status register")

// StepResult tells the driver what happened during a PPU step.
type StepResult uint8

const (
	StepNormal StepResult = iota
	// StepNMI means VBlank started with NMI generation enabled.
	// The driver decides whether to raise the NMI on the CPU.
	StepNMI
)

// patternColors is the fixed palette used to draw the pattern tables.
var patternColors = [4]color.RGBA{
	{0xff, 0xff, 0xff, 0xff},
	{0x00, 0x00, 0xff, 0xff},
	{0x00, 0xff, 0x00, 0xff},
	{0xff, 0x00, 0x00, 0xff},
}

// PPU is the picture generator: the register file the CPU sees
// at $2000-$3FFF and the scanline timing.
//
// $2000 PPUCTRL   W
// $2001 PPUMASK   W
// $2002 PPUSTATUS R
// $2003 OAMADDR   W
// $2004 OAMDATA   RW
// $2005 PPUSCROLL Wx2
// $2006 PPUADDR   Wx2
// $2007 PPUDATA   RW
type PPU struct {
	// Registers
	ctrl    uint8
	mask    uint8
	status  uint8
	oamaddr uint8
	scroll  uint16
	addr    uint16
	// latch is the write toggle shared by PPUSCROLL and PPUADDR,
	// false means the next write is the high byte
	latch bool
	// readBuf delays PPUDATA reads below the palette by one read
	readBuf uint8

	oam [0x100]uint8
	// $0000-$0FFF: Pattern table 0
	// $1000-$1FFF: Pattern table 1
	// $2000-$2FFF: Nametables
	// $3000-$3EFF: Mirrors of $2000-$2EFF
	// $3F00-$3F1F: Palette RAM indexes
	// $3F20-$3FFF: Mirrors of $3F00-$3F1F
	vram [0x4000]uint8

	cycle    uint16
	scanline int16
	frame    uint64

	screen []uint8
}

func NewPPU() *PPU {
	return &PPU{
		screen: make([]uint8, ScreenWidth*ScreenHeight*3),
	}
}

// Step advances the PPU by one cycle.
func (p *PPU) Step() StepResult {
	p.cycle++
	if p.cycle > lastCycle {
		p.cycle = 0
		p.scanline++

		if p.scanline == lastScanline {
			p.scanline = preRenderScanline
			p.frame++
		}
	}

	if p.cycle != 1 {
		return StepNormal
	}
	switch p.scanline {
	case preRenderScanline:
		p.status &^= statusVBlank
	case vblankScanline:
		p.status |= statusVBlank
		if p.ctrl&ctrlNMI != 0 {
			return StepNMI
		}
	}
	return StepNormal
}

func (p *PPU) Scanline() int16 {
	return p.scanline
}

func (p *PPU) Cycle() uint16 {
	return p.cycle
}

// Frame is the number of frames completed so far.
func (p *PPU) Frame() uint64 {
	return p.frame
}

// Framebuffer returns the 256x240 RGB screen, 3 bytes per pixel.
func (p *PPU) Framebuffer() []uint8 {
	return p.screen
}

func vramIndex(addr uint16) uint16 {
	addr &= 0x3fff
	switch {
	case addr >= paletteStart:
		return paletteStart | addr&0x1f
	case addr >= 0x3000:
		return addr - 0x1000
	}
	return addr
}

func (p *PPU) increment() {
	if p.ctrl&ctrlIncrement32 != 0 {
		p.addr += 32
		return
	}
	p.addr++
}

// Read8 reads a register. addr is mirrored every 8 bytes.
func (p *PPU) Read8(addr uint16) uint8 {
	switch addr % 8 {
	case 0x2:
		data := p.status
		p.status &^= statusVBlank
		p.latch = false
		return data
	case 0x7:
		idx := vramIndex(p.addr)
		data := p.readBuf
		if idx >= paletteStart {
			data = p.vram[idx]
		}
		p.readBuf = p.vram[idx]
		p.increment()
		return data
	}
	return p.Peek8(addr)
}

// Peek8 reads a register without touching the status,
// the write toggle or the data buffer.
func (p *PPU) Peek8(addr uint16) uint8 {
	switch addr % 8 {
	case 0x0:
		return p.ctrl
	case 0x1:
		return p.mask
	case 0x2:
		return p.status
	case 0x3:
		return p.oamaddr
	case 0x4:
		return p.oam[p.oamaddr]
	case 0x5:
		return uint8(p.scroll)
	case 0x6:
		return uint8(p.addr)
	case 0x7:
		if idx := vramIndex(p.addr); idx >= paletteStart {
			return p.vram[idx]
		}
		return p.readBuf
	}
	return 0
}

// latchWrite stores data as the high byte on the first write
// and as the low byte on the second one.
func (p *PPU) latchWrite(reg *uint16, data uint8) {
	if !p.latch {
		*reg = uint16(data)<<8 | *reg&0x00ff
	} else {
		*reg = *reg&0xff00 | uint16(data)
	}
	p.latch = !p.latch
}

// Write8 writes a register. Writing PPUSTATUS panics with
// ErrIllegalStatusWrite.
func (p *PPU) Write8(addr uint16, data uint8) uint8 {
	switch addr % 8 {
	case 0x0:
		p.ctrl = data
	case 0x1:
		p.mask = data
	case 0x2:
		panic(fmt.Errorf("ppu: $%02X to $%04X: %w", data, 0x2000+addr, ErrIllegalStatusWrite))
	case 0x3:
		p.oamaddr = data
	case 0x4:
		p.oam[p.oamaddr] = data
		p.oamaddr++
	case 0x5:
		p.latchWrite(&p.scroll, data)
	case 0x6:
		p.latchWrite(&p.addr, data)
	case 0x7:
		p.vram[vramIndex(p.addr)] = data
		p.increment()
	}
	return data
}

// Slice returns nil, the register file has no linear backing.
func (p *PPU) Slice(uint16) []uint8 {
	return nil
}

// LoadPatterns copies CHR data into the pattern tables.
func (p *PPU) LoadPatterns(chr []uint8) {
	copy(p.vram[:0x2000], chr)
}

// PatternTable renders one of the two pattern tables as
// a 128x128 image, 16x16 tiles of 8x8 pixels.
func (p *PPU) PatternTable(table int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	base := (table & 1) * 0x1000
	for tile := 0; tile < 256; tile++ {
		tileX, tileY := (tile%16)*8, (tile/16)*8
		p.drawTile(base+tile*16, func(x, y int, c color.RGBA) {
			img.SetRGBA(tileX+x, tileY+y, c)
		})
	}
	return img
}

// DrawPatternTables draws both pattern tables into the framebuffer,
// 32 tiles per row.
func (p *PPU) DrawPatternTables() {
	for tile := 0; tile < 512; tile++ {
		tileX, tileY := (tile%32)*8, (tile/32)*8
		p.drawTile(tile*16, func(x, y int, c color.RGBA) {
			p.drawPixel(tileX+x, tileY+y, c)
		})
	}
}

// drawTile decodes the 16 byte tile at offset. Each row is
// one byte from the low plane and one from the high plane.
func (p *PPU) drawTile(offset int, draw func(x, y int, c color.RGBA)) {
	for y := 0; y < 8; y++ {
		lo := p.vram[offset+y]
		hi := p.vram[offset+y+8]
		for x := 0; x < 8; x++ {
			bit := uint8(0x80) >> x
			idx := 0
			if lo&bit != 0 {
				idx |= 1
			}
			if hi&bit != 0 {
				idx |= 2
			}
			draw(x, y, patternColors[idx])
		}
	}
}

func (p *PPU) drawPixel(x, y int, c color.RGBA) {
	if x >= ScreenWidth || y >= ScreenHeight {
		return
	}
	i := (y*ScreenWidth + x) * 3
	p.screen[i] = c.R
	p.screen[i+1] = c.G
	p.screen[i+2] = c.B
}
