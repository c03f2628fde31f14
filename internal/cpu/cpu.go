package cpu

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// Bus is the view of the system bus the CPU needs.
type Bus interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, data uint8) uint8
	// FetchSlice returns the bytes following addr inside
	// the device that owns addr. It may be short or nil.
	FetchSlice(addr uint16) []uint8
}

// peeker is implemented by buses that can read without side effects.
type peeker interface {
	Peek8(addr uint16) (uint8, bool)
}

const (
	// The stack is located in the fixed memory page $0100 to $01FF.
	stackStartAddr = uint16(0x100)

	vectorNMI   = uint16(0xfffa)
	vectorReset = uint16(0xfffc)
	vectorIRQ   = uint16(0xfffe)
)

// ErrAddressSpaceExhausted is returned when sequential execution
// would run past $FFFF. An instruction that does not fit is not
// executed; one that ends at $FFFF runs and then reports it unless
// it jumped.
var ErrAddressSpaceExhausted = errors.New("execution ran past the end of the address space")

// Flags is the processor status register.
type Flags uint8

const (
	FlagCarry     Flags = 1 << iota // Carry
	FlagZero                        // Zero
	FlagInterrupt                   // Interrupt Disable
	FlagDecimal                     // Decimal Mode
	FlagBreak                       // Break Command
	flagUnused                      // always 1 on the stack, never stored
	FlagOverflow                    // Overflow
	FlagNegative                    // Negative
)

// String renders the flags as NV-BDIZC, lower case when clear.
func (f Flags) String() string {
	const names = "czidb-vn"
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		c := names[i]
		if i != 5 && f&(1<<i) != 0 {
			c -= 'a' - 'A'
		}
		out[7-i] = c
	}
	return string(out)
}

// Registers is a snapshot of the CPU registers.
type Registers struct {
	PC uint16
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	P  Flags
}

type CPU struct {
	a   uint8
	x   uint8
	y   uint8
	sp  uint8
	pc  uint16
	p   Flags
	bus Bus

	// the 2A03 has the decimal mode wired off
	decimal bool
}

func New(bus Bus) *CPU {
	return &CPU{
		sp:      0xff,
		bus:     bus,
		decimal: true,
	}
}

// SetDecimal enables or disables BCD arithmetic. The D flag
// itself can still be set and cleared when it is disabled.
func (c *CPU) SetDecimal(enabled bool) {
	c.decimal = enabled
}

func isSameSign(a, b uint8) bool {
	return (a^b)&0x80 == 0
}

func (c *CPU) read8(addr uint16) uint8 {
	return c.bus.Read8(addr)
}

func (c *CPU) read16(addr uint16) uint16 {
	return uint16(c.read8(addr)) | uint16(c.read8(addr+1))<<8
}

func (c *CPU) write8(addr uint16, data uint8) {
	c.bus.Write8(addr, data)
}

func (c *CPU) getFlag(flag Flags) bool {
	return c.p&flag != 0
}

func (c *CPU) setFlag(flag Flags, v bool) {
	if v {
		c.p |= flag
		return
	}
	c.p &^= flag
}

func (c *CPU) setFlagsZN(value uint8) {
	c.setFlag(FlagZero, value == 0)
	c.setFlag(FlagNegative, value&0x80 != 0)
}

func (c *CPU) stackPop8() uint8 {
	c.sp++
	return c.read8(stackStartAddr | uint16(c.sp))
}

func (c *CPU) stackPop16() uint16 {
	lo := uint16(c.stackPop8())
	hi := uint16(c.stackPop8())
	return lo | hi<<8
}

func (c *CPU) stackPush8(data uint8) {
	c.write8(stackStartAddr|uint16(c.sp), data)
	c.sp--
}

func (c *CPU) stackPush16(data uint16) {
	c.stackPush8(uint8(data >> 8))
	c.stackPush8(uint8(data & 0xff))
}

func (c *CPU) pushFlags(brk bool) {
	p := c.p | flagUnused
	if brk {
		p |= FlagBreak
	} else {
		p &^= FlagBreak
	}
	c.stackPush8(uint8(p))
}

func (c *CPU) pullFlags() {
	c.p = Flags(c.stackPop8()) &^ (FlagBreak | flagUnused)
}

// guard turns a panic raised by a bus device into an error.
// Programming errors are not recovered.
func (c *CPU) guard(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if _, ok := r.(runtime.Error); ok {
		panic(r)
	}
	if e, ok := r.(error); ok {
		*err = fmt.Errorf("cpu: fatal bus access (PC: $%04X): %w", c.pc, e)
		return
	}
	panic(r)
}

// Reset loads PC from the reset vector and puts the
// registers into their power-up state.
func (c *CPU) Reset() (err error) {
	defer c.guard(&err)
	c.a = 0
	c.x = 0
	c.y = 0
	c.p = FlagInterrupt
	c.sp = 0xfd
	c.pc = c.read16(vectorReset)
	return nil
}

func (c *CPU) interrupt(vector uint16) {
	c.stackPush16(c.pc)
	c.pushFlags(false)
	c.setFlag(FlagInterrupt, true)
	c.pc = c.read16(vector)
}

// NMI services a non-maskable interrupt request.
func (c *CPU) NMI() (err error) {
	defer c.guard(&err)
	c.interrupt(vectorNMI)
	return nil
}

// IRQ services an interrupt request. It reports false when
// the request was ignored because interrupts are disabled.
func (c *CPU) IRQ() (taken bool, err error) {
	defer c.guard(&err)
	if c.getFlag(FlagInterrupt) {
		return false, nil
	}
	c.interrupt(vectorIRQ)
	return true, nil
}

func (c *CPU) Registers() Registers {
	return Registers{PC: c.pc, A: c.a, X: c.x, Y: c.y, SP: c.sp, P: c.p}
}

func (c *CPU) SetRegisters(r Registers) {
	c.pc = r.PC
	c.a = r.A
	c.x = r.X
	c.y = r.Y
	c.sp = r.SP
	c.p = r.P &^ flagUnused
}

// SetPC overrides the start address, e.g. to run nestest from $C000.
func (c *CPU) SetPC(pc uint16) {
	c.pc = pc
}

// fetch returns the raw bytes of the instruction at pc.
// Unknown opcodes are one byte long. An instruction whose last
// byte would lie past $FFFF is reported as exhaustion.
func (c *CPU) fetch() ([]uint8, error) {
	buf := c.bus.FetchSlice(c.pc)
	var opcode uint8
	if len(buf) > 0 {
		opcode = buf[0]
	} else {
		opcode = c.read8(c.pc)
	}

	size := opcodes[opcode].size()
	if uint32(c.pc)+uint32(size) > 0x10000 {
		return []uint8{opcode}, ErrAddressSpaceExhausted
	}
	if len(buf) >= size {
		return buf[:size], nil
	}

	// the device backing ends before the instruction does
	raw := make([]uint8, size)
	raw[0] = opcode
	for i := 1; i < size; i++ {
		if i < len(buf) {
			raw[i] = buf[i]
			continue
		}
		raw[i] = c.read8(c.pc + uint16(i))
	}
	return raw, nil
}

// Step executes one instruction.
// Unknown opcodes are skipped as one byte no-ops.
func (c *CPU) Step() (tr Trace, err error) {
	defer c.guard(&err)

	pc := c.pc
	raw, err := c.fetch()
	if err != nil {
		return Trace{PC: pc, Opcode: raw[0], Regs: c.Registers()}, err
	}

	inst, ok := Decode(raw)
	if !ok {
		c.pc++
		tr = Trace{PC: pc, Opcode: raw[0], Regs: c.Registers()}
		if c.pc == 0 {
			return tr, ErrAddressSpaceExhausted
		}
		return tr, nil
	}

	next := pc + inst.Size()
	c.pc = next
	arg := c.resolve(inst)
	tr = Trace{
		PC:      pc,
		Opcode:  inst.Opcode,
		Decoded: true,
		Inst:    inst,
		Operand: c.operandText(inst, arg),
	}
	inst.exec(c, arg)
	tr.Regs = c.Registers()

	// the last instruction of the address space ran and fell through
	if next < pc && c.pc == next {
		return tr, ErrAddressSpaceExhausted
	}
	return tr, nil
}

// Run executes instructions until the context is cancelled, stop
// returns true for the next PC, or a fatal error happens. Running
// past the end of the address space ends the loop without an error.
func (c *CPU) Run(ctx context.Context, stop func(pc uint16) bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if stop != nil && stop(c.pc) {
			return nil
		}

		if _, err := c.Step(); err != nil {
			if errors.Is(err, ErrAddressSpaceExhausted) {
				return nil
			}
			return err
		}
	}
}
