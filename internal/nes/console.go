package nes

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"

	"github.com/nevisdale/nescore/internal/bus"
	"github.com/nevisdale/nescore/internal/cpu"
)

// CPU memory map
//
// $0000-$07FF: 2 KB of internal RAM
// $0800-$1FFF: Mirrors of $0000-$07FF
// $2000-$2007: PPU (Picture Processing Unit) registers
// $2008-$3FFF: Mirrors of $2000-$2007 (every 8 bytes)
// $4000-$4017: APU (Audio Processing Unit) and I/O registers
// $4018-$401F: APU and I/O functionality that is normally disabled
// $4020-$5FFF: Expansion area, not mapped
// $6000-$7FFF: PRG RAM
// $8000-$FFFF: PRG ROM
const (
	ramSize = 0x800
	ramEnd  = 0x2000
	ppuEnd  = 0x4000
	apuEnd  = 0x4018
)

// Console wires the CPU, the PPU and the cartridge together
// and drives them one step at a time.
type Console struct {
	bus  *bus.Bus
	cpu  *cpu.CPU
	ppu  *PPU
	cart *Cart

	pause   bool
	oneStep bool
	steps   uint64
}

func NewConsole(cart *Cart) (*Console, error) {
	c := &Console{
		bus:  bus.New(),
		ppu:  NewPPU(),
		cart: cart,
	}

	mounts := []struct {
		r    bus.Range
		name string
		dev  bus.Device
	}{
		{bus.NewRange(0x0000, ramEnd), "ram", bus.NewMemory(ramSize)},
		{bus.NewRange(ramEnd, ppuEnd), "ppu", c.ppu},
		{bus.NewRange(ppuEnd, apuEnd), "apu/io", bus.NewMemory(apuEnd - ppuEnd)},
		{bus.NewRange(cartStart, cartEnd), "cart", cart},
	}
	for _, m := range mounts {
		if err := c.bus.Register(m.r, m.name, m.dev); err != nil {
			return nil, err
		}
	}

	c.ppu.LoadPatterns(cart.CHR())
	c.cpu = cpu.New(c.bus)
	// 2A03 has no decimal mode
	c.cpu.SetDecimal(false)
	if err := c.Reset(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Console) Reset() error {
	c.steps = 0
	return c.cpu.Reset()
}

// SetStart overrides the reset vector, e.g. nestest starts at $C000.
func (c *Console) SetStart(pc uint16) {
	c.cpu.SetPC(pc)
}

// tick runs one CPU step and one PPU step.
func (c *Console) tick() (cpu.Trace, error) {
	tr, err := c.cpu.Step()
	if err != nil {
		return tr, err
	}
	c.steps++

	if c.ppu.Step() == StepNMI {
		if err := c.cpu.NMI(); err != nil {
			return tr, err
		}
	}
	return tr, nil
}

// Step executes one instruction and returns its trace line.
func (c *Console) Step() (string, error) {
	tr, err := c.tick()
	if err != nil {
		return "", err
	}
	return tr.String(), nil
}

// Run steps until the context is done, the PC hits a breakpoint or
// a fatal error happens. A breakpoint at the current PC is stepped over.
// trace, if not nil, receives every executed instruction.
func (c *Console) Run(ctx context.Context, breakpoints map[uint16]bool, trace io.Writer) error {
	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !first && breakpoints[c.cpu.Registers().PC] {
			return nil
		}
		first = false

		tr, err := c.tick()
		if errors.Is(err, cpu.ErrAddressSpaceExhausted) {
			return nil
		}
		if err != nil {
			return err
		}
		if trace != nil {
			fmt.Fprintln(trace, tr)
		}
	}
}

// RunFrame steps until the PPU finishes a frame. It does nothing
// while paused unless a single step was requested.
func (c *Console) RunFrame() error {
	if c.pause {
		if !c.oneStep {
			return nil
		}
		c.oneStep = false
		_, err := c.tick()
		return err
	}

	frame := c.ppu.Frame()
	for c.ppu.Frame() == frame {
		if _, err := c.tick(); err != nil {
			c.pause = true
			return err
		}
	}
	return nil
}

func (c *Console) TogglePause() {
	c.pause = !c.pause
	if c.pause {
		log.Printf("paused at $%04X", c.cpu.Registers().PC)
	}
}

// OneStepAndStop pauses the console and executes one instruction
// on the next RunFrame.
func (c *Console) OneStepAndStop() {
	c.pause = true
	c.oneStep = true
}

func (c *Console) Paused() bool {
	return c.pause
}

// Steps is the number of instructions executed since the last reset.
func (c *Console) Steps() uint64 {
	return c.steps
}

func (c *Console) Registers() cpu.Registers {
	return c.cpu.Registers()
}

func (c *Console) Peek8(addr uint16) (uint8, bool) {
	return c.bus.Peek8(addr)
}

func (c *Console) Mounts() []bus.Mount {
	return c.bus.Mounts()
}

// Disassemble disassembles the mapped memory between from and to.
func (c *Console) Disassemble(from, to uint16) map[uint16]string {
	return c.cpu.Disassemble(from, to)
}

// Dump writes every mounted range as hex rows.
func (c *Console) Dump(w io.Writer) error {
	return c.bus.Dump(w)
}

func (c *Console) Cart() *Cart {
	return c.cart
}

func (c *Console) Frame() uint64 {
	return c.ppu.Frame()
}

func (c *Console) Framebuffer() []uint8 {
	return c.ppu.Framebuffer()
}

func (c *Console) PatternTable(table int) *image.RGBA {
	return c.ppu.PatternTable(table)
}

// DrawPatternTables renders the CHR data into the framebuffer.
func (c *Console) DrawPatternTables() {
	c.ppu.DrawPatternTables()
}
