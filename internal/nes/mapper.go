package nes

import (
	"errors"
	"fmt"

	"github.com/nevisdale/nescore/internal/bus"
)

var ErrUnsupportedMapper = errors.New("unsupported mapper")

const (
	// cartStart is where the cartridge window starts on the CPU bus.
	cartStart  = 0x6000
	cartEnd    = 0x10000
	prgRamSize = 0x2000
	// trainerAddr is where the 512 byte trainer is loaded.
	trainerAddr = 0x7000
)

// Mapper translates accesses to the cartridge window
// $6000-$FFFF. Addresses are offsets from $6000.
type Mapper interface {
	bus.Device
}

func NewMapper(cart *Cart) (Mapper, error) {
	switch cart.mapperID {
	case 0:
		return &Mapper0{cart}, nil
	}
	return nil, fmt.Errorf("mapper %d: %w", cart.mapperID, ErrUnsupportedMapper)
}

// Mapper0 is NROM: 8 KiB PRG RAM and 16 or 32 KiB PRG ROM
// without bank switching. A single 16 KiB bank is mirrored
// into $C000-$FFFF.
type Mapper0 struct {
	cart *Cart
}

// mapAddr returns the backing and the index into it.
func (m Mapper0) mapAddr(addr uint16) ([]uint8, uint16) {
	if addr < prgRamSize {
		return m.cart.prgRam, addr
	}
	addr -= prgRamSize
	if m.cart.prgBanks > 1 {
		return m.cart.prgRom, addr & 0x7fff
	}
	return m.cart.prgRom, addr & 0x3fff
}

func (m Mapper0) Read8(addr uint16) uint8 {
	mem, i := m.mapAddr(addr)
	return mem[i]
}

func (m *Mapper0) Write8(addr uint16, data uint8) uint8 {
	// PRG ROM is read only
	if addr < prgRamSize {
		m.cart.prgRam[addr] = data
	}
	return data
}

func (m Mapper0) Slice(from uint16) []uint8 {
	mem, i := m.mapAddr(from)
	return mem[i:]
}
