package cpu

import "fmt"

type Mode uint8

const (
	// Implied
	// Operand is implicit.
	// Example: CLC (Clear Carry Flag)
	Implied Mode = iota + 1

	// Accumulator
	// Operand is the accumulator.
	// Example: LSR A (Logical Shift Right on Accumulator)
	Accumulator

	// Register X, Register Y, Register SP
	// Operand is an index register or the stack pointer. Used by
	// the increments/decrements so they never go through memory.
	// Example: INX (Increment X)
	RegisterX
	RegisterY
	RegisterSP

	// Immediate
	// Operand is a constant value.
	// Example: LDA #$10 (Load Accumulator with 10)
	Immediate

	// Zero Page
	// Operand is located in the first 256 bytes of memory.
	// Example: LDA $10 (Load Accumulator from address $0010)
	ZeroPage

	// Zero Page, X
	// Operand address is in zero page plus the X register.
	// The sum wraps around inside the zero page.
	// Example: LDA $10,X (Load Accumulator from address $0010 + X)
	ZeroPageX

	// Zero Page, Y
	// Operand address is in zero page plus the Y register.
	// Example: LDX $10,Y (Load X Register from address $0010 + Y)
	ZeroPageY

	// Absolute
	// Full 16-bit address.
	// Example: LDA $1234 (Load Accumulator from address $1234)
	Absolute

	// Absolute, X
	// Full 16-bit address plus the X register.
	// Example: LDA $1234,X (Load Accumulator from address $1234 + X)
	AbsoluteX

	// Absolute, Y
	// Full 16-bit address plus the Y register.
	// Example: LDA $1234,Y (Load Accumulator from address $1234 + Y)
	AbsoluteY

	// Relative
	// Used for branching instructions.
	// The operand is a signed 8-bit offset from the address of the next instruction.
	// Example: BNE $10 (Branch if Not Equal, with an offset of $10)
	Relative

	// Indirect
	// Address is fetched from a pointer.
	// Example: JMP ($1234) (Jump to address stored at $1234)
	Indirect

	// Indexed Indirect (X)
	// Address is in zero page, indexed by X.
	// Example: LDA ($10,X) (Load Accumulator from address stored at $0010 + X)
	IndexedIndirect

	// Indirect Indexed (Y)
	// Address is fetched from zero page pointer plus Y.
	// Example: LDA ($10),Y (Load Accumulator from address stored at $0010 + Y)
	IndirectIndexed
)

func (mode Mode) String() string {
	switch mode {
	case Implied:
		return "IMP"
	case Accumulator:
		return "ACC"
	case RegisterX:
		return "REGX"
	case RegisterY:
		return "REGY"
	case RegisterSP:
		return "REGSP"
	case Immediate:
		return "IMM"
	case ZeroPage:
		return "ZP"
	case ZeroPageX:
		return "ZPX"
	case ZeroPageY:
		return "ZPY"
	case Absolute:
		return "ABS"
	case AbsoluteX:
		return "ABSX"
	case AbsoluteY:
		return "ABSY"
	case Relative:
		return "REL"
	case Indirect:
		return "IND"
	case IndexedIndirect:
		return "INDX"
	case IndirectIndexed:
		return "INDY"
	}
	return "???"
}

// Size is the length in bytes of an instruction using the mode,
// opcode included.
func (mode Mode) Size() uint16 {
	switch mode {
	case Implied, Accumulator, RegisterX, RegisterY, RegisterSP:
		return 1
	case Immediate, ZeroPage, ZeroPageX, ZeroPageY, Relative, IndexedIndirect, IndirectIndexed:
		return 2
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 3
	}
	return 1
}

type operandKind uint8

const (
	operandNone operandKind = iota
	operandRegister
	operandImmediate
	operandMemory
)

// operand is the resolved target of an instruction. Handlers read
// and write through it so a register operand never touches the bus.
type operand struct {
	kind  operandKind
	reg   *uint8
	value uint8
	addr  uint16
}

func (c *CPU) load(op operand) uint8 {
	switch op.kind {
	case operandRegister:
		return *op.reg
	case operandImmediate:
		return op.value
	case operandMemory:
		return c.read8(op.addr)
	}
	return 0
}

func (c *CPU) store(op operand, data uint8) {
	switch op.kind {
	case operandRegister:
		*op.reg = data
	case operandMemory:
		c.write8(op.addr, data)
	}
}

// resolve computes the operand of inst. It must be called
// after pc has been moved past the instruction.
func (c *CPU) resolve(inst Instruction) operand {
	switch inst.Mode {
	case Accumulator:
		return operand{kind: operandRegister, reg: &c.a}
	case RegisterX:
		return operand{kind: operandRegister, reg: &c.x}
	case RegisterY:
		return operand{kind: operandRegister, reg: &c.y}
	case RegisterSP:
		return operand{kind: operandRegister, reg: &c.sp}
	case Immediate:
		return operand{kind: operandImmediate, value: inst.byte()}
	case ZeroPage:
		return c.memory(uint16(inst.byte()))
	case ZeroPageX:
		return c.memory(uint16(inst.byte() + c.x))
	case ZeroPageY:
		return c.memory(uint16(inst.byte() + c.y))
	case Absolute:
		return c.memory(inst.word())
	case AbsoluteX:
		return c.memory(inst.word() + uint16(c.x))
	case AbsoluteY:
		return c.memory(inst.word() + uint16(c.y))
	case Relative:
		return c.memory(c.pc + uint16(int8(inst.byte())))
	case Indirect:
		// NMOS bug: the pointer high byte does not cross a page,
		// JMP ($10FF) reads $10FF and $1000.
		ptr := inst.word()
		hi := ptr&0xff00 | uint16(uint8(ptr)+1)
		return c.memory(uint16(c.read8(ptr)) | uint16(c.read8(hi))<<8)
	case IndexedIndirect:
		ptr := inst.byte() + c.x
		return c.memory(c.zeroPage16(ptr))
	case IndirectIndexed:
		return c.memory(c.zeroPage16(inst.byte()) + uint16(c.y))
	}
	return operand{kind: operandNone}
}

func (c *CPU) memory(addr uint16) operand {
	return operand{kind: operandMemory, addr: addr}
}

// zeroPage16 reads a little endian pointer stored in the zero page.
// The high byte wraps to $00 when the pointer is at $FF.
func (c *CPU) zeroPage16(ptr uint8) uint16 {
	lo := uint16(c.read8(uint16(ptr)))
	hi := uint16(c.read8(uint16(ptr + 1)))
	return lo | hi<<8
}

// Syntax renders the operand in assembler notation. pc is the
// address of the next instruction, used for branch targets.
func (inst Instruction) Syntax(pc uint16) string {
	switch inst.Mode {
	case Accumulator:
		return "A"
	case Immediate:
		return fmt.Sprintf("#$%02X", inst.byte())
	case ZeroPage:
		return fmt.Sprintf("$%02X", inst.byte())
	case ZeroPageX:
		return fmt.Sprintf("$%02X,X", inst.byte())
	case ZeroPageY:
		return fmt.Sprintf("$%02X,Y", inst.byte())
	case Absolute:
		return fmt.Sprintf("$%04X", inst.word())
	case AbsoluteX:
		return fmt.Sprintf("$%04X,X", inst.word())
	case AbsoluteY:
		return fmt.Sprintf("$%04X,Y", inst.word())
	case Relative:
		return fmt.Sprintf("$%04X", pc+uint16(int8(inst.byte())))
	case Indirect:
		return fmt.Sprintf("($%04X)", inst.word())
	case IndexedIndirect:
		return fmt.Sprintf("($%02X,X)", inst.byte())
	case IndirectIndexed:
		return fmt.Sprintf("($%02X),Y", inst.byte())
	}
	return ""
}

// operandText is the syntax plus the effective address
// for the modes where it is not obvious.
func (c *CPU) operandText(inst Instruction, op operand) string {
	s := inst.Syntax(c.pc)
	switch inst.Mode {
	case ZeroPageX, ZeroPageY, AbsoluteX, AbsoluteY, Indirect, IndexedIndirect, IndirectIndexed:
		s += fmt.Sprintf(" @ $%04X", op.addr)
	}
	return s
}
