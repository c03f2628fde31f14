package nes

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	inesMagic        = 0x1a53454e
	prgBankSizeBytes = 0x4000
	chrBankSizeBytes = 0x2000
	trainerSize      = 512
)

var ErrInvalidHeader = errors.New("invalid iNES header")

type Format uint8

const (
	FormatINES Format = iota
	FormatNES2
)

func (f Format) String() string {
	if f == FormatNES2 {
		return "NES 2.0"
	}
	return "iNES"
}

type TVSystem uint8

const (
	NTSC TVSystem = iota
	PAL
)

func (tv TVSystem) String() string {
	if tv == PAL {
		return "PAL"
	}
	return "NTSC"
}

type Cart struct {
	prgRom []uint8
	prgRam []uint8
	chrMem []uint8

	prgBanks uint8
	chrBanks uint8
	mapperID uint8
	mirror   uint8 // 0: horizontal, 1: vertical
	format   Format
	tv       TVSystem
	trainer  bool

	mapper Mapper
}

// NewCartFromFile reads a .nes file and returns a Cart struct.
// Supported NES format: iNES, NES 2.0 headers are accepted.
func NewCartFromFile(path string) (*Cart, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open the file: %w", err)
	}
	defer file.Close()

	return NewCart(file)
}

// NewCart reads an iNES image.
func NewCart(r io.Reader) (*Cart, error) {
	var header struct {
		Magic      uint32
		PrgRomSize uint8
		ChrRomSize uint8
		Flags6     uint8
		Flags7     uint8
		Flags8     uint8
		Flags9     uint8
		Flags10    uint8
		_          [5]uint8 // unused
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("couldn't read the header: %w", err)
	}
	if header.Magic != inesMagic {
		return nil, fmt.Errorf("bad magic %08X: %w", header.Magic, ErrInvalidHeader)
	}
	if header.PrgRomSize == 0 {
		return nil, fmt.Errorf("no PRG ROM banks: %w", ErrInvalidHeader)
	}

	// flag6 and flag7 contain part of the mapper ID in 4 high bits
	// flag6: lower 4 bits of mapper ID
	// flag7: upper 4 bits of mapper ID
	mapperID := (header.Flags7 & 0xf0) | (header.Flags6 >> 4)

	cart := &Cart{
		prgRom:   make([]uint8, int(header.PrgRomSize)*prgBankSizeBytes),
		prgRam:   make([]uint8, prgRamSize),
		prgBanks: header.PrgRomSize,
		chrBanks: header.ChrRomSize,
		mapperID: mapperID,
		mirror:   header.Flags6 & 0x1,
		trainer:  header.Flags6&0x4 != 0,
	}
	if header.Flags7&0x0c == 0x08 {
		cart.format = FormatNES2
	}
	if header.Flags9&0x1 != 0 {
		cart.tv = PAL
	}

	mapper, err := NewMapper(cart)
	if err != nil {
		return nil, err
	}
	cart.mapper = mapper

	// the second bit of flags6 is the trainer flag
	if cart.trainer {
		off := trainerAddr - cartStart
		if _, err := io.ReadFull(r, cart.prgRam[off:off+trainerSize]); err != nil {
			return nil, fmt.Errorf("couldn't read the trainer: %w", err)
		}
	}

	if _, err := io.ReadFull(r, cart.prgRom); err != nil {
		return nil, fmt.Errorf("couldn't read PRG ROM: %w", err)
	}

	// no CHR ROM means the board has 8 KiB CHR RAM
	if header.ChrRomSize == 0 {
		cart.chrMem = make([]uint8, chrBankSizeBytes)
		return cart, nil
	}
	cart.chrMem = make([]uint8, int(header.ChrRomSize)*chrBankSizeBytes)
	if _, err := io.ReadFull(r, cart.chrMem); err != nil {
		return nil, fmt.Errorf("couldn't read CHR ROM: %w", err)
	}

	return cart, nil
}

// NewCartFromPRG builds a mapper 0 cartridge around raw PRG data,
// which must be one or two 16 KiB banks.
func NewCartFromPRG(prg, chr []uint8) (*Cart, error) {
	if len(prg) != prgBankSizeBytes && len(prg) != 2*prgBankSizeBytes {
		return nil, fmt.Errorf("PRG size %d is not one or two banks: %w", len(prg), ErrInvalidHeader)
	}

	var buf bytes.Buffer
	header := [16]uint8{'N', 'E', 'S', 0x1a, uint8(len(prg) / prgBankSizeBytes), uint8(len(chr) / chrBankSizeBytes)}
	buf.Write(header[:])
	buf.Write(prg)
	buf.Write(chr[:len(chr)/chrBankSizeBytes*chrBankSizeBytes])
	return NewCart(&buf)
}

func (c *Cart) MapperID() uint8 {
	return c.mapperID
}

func (c *Cart) Format() Format {
	return c.format
}

func (c *Cart) TVSystem() TVSystem {
	return c.tv
}

// CHR returns the CHR ROM, or the CHR RAM when the board has no ROM.
func (c *Cart) CHR() []uint8 {
	return c.chrMem
}

func (c *Cart) String() string {
	mirror := "horizontal"
	if c.mirror == 1 {
		mirror = "vertical"
	}
	return fmt.Sprintf("%s mapper %d, PRG %d x 16KiB, CHR %d x 8KiB, %s mirroring, %s, trainer %t",
		c.format, c.mapperID, c.prgBanks, c.chrBanks, mirror, c.tv, c.trainer)
}

// Read8 reads the cartridge window, addr is relative to $6000.
func (c *Cart) Read8(addr uint16) uint8 {
	return c.mapper.Read8(addr)
}

func (c *Cart) Write8(addr uint16, data uint8) uint8 {
	return c.mapper.Write8(addr, data)
}

func (c *Cart) Slice(from uint16) []uint8 {
	return c.mapper.Slice(from)
}
