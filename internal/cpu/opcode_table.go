package cpu

import "fmt"

type handler func(*CPU, operand)

type opcode struct {
	name     string
	mode     Mode
	exec     handler
	official bool
}

// size is 1 for unmapped opcodes, they are skipped as one byte.
func (o opcode) size() int {
	if o.exec == nil {
		return 1
	}
	return int(o.mode.Size())
}

// opcodes maps every opcode byte to its instruction.
// The zero entries are unmapped.
// https://www.nesdev.org/obelisk-6502-guide/reference.html
// https://www.nesdev.org/wiki/CPU_unofficial_opcodes
var opcodes = [256]opcode{
	0x00: {"BRK", Implied, (*CPU).brk, true},
	0x01: {"ORA", IndexedIndirect, (*CPU).ora, true},
	0x03: {"SLO", IndexedIndirect, (*CPU).slo, false},
	0x04: {"NOP", ZeroPage, (*CPU).nop, false},
	0x05: {"ORA", ZeroPage, (*CPU).ora, true},
	0x06: {"ASL", ZeroPage, (*CPU).asl, true},
	0x07: {"SLO", ZeroPage, (*CPU).slo, false},
	0x08: {"PHP", Implied, (*CPU).php, true},
	0x09: {"ORA", Immediate, (*CPU).ora, true},
	0x0a: {"ASL", Accumulator, (*CPU).asl, true},
	0x0b: {"ANC", Immediate, (*CPU).anc, false},
	0x0c: {"NOP", Absolute, (*CPU).nop, false},
	0x0d: {"ORA", Absolute, (*CPU).ora, true},
	0x0e: {"ASL", Absolute, (*CPU).asl, true},
	0x0f: {"SLO", Absolute, (*CPU).slo, false},
	0x10: {"BPL", Relative, (*CPU).bpl, true},
	0x11: {"ORA", IndirectIndexed, (*CPU).ora, true},
	0x13: {"SLO", IndirectIndexed, (*CPU).slo, false},
	0x14: {"NOP", ZeroPageX, (*CPU).nop, false},
	0x15: {"ORA", ZeroPageX, (*CPU).ora, true},
	0x16: {"ASL", ZeroPageX, (*CPU).asl, true},
	0x17: {"SLO", ZeroPageX, (*CPU).slo, false},
	0x18: {"CLC", Implied, (*CPU).clc, true},
	0x19: {"ORA", AbsoluteY, (*CPU).ora, true},
	0x1a: {"NOP", Implied, (*CPU).nop, false},
	0x1b: {"SLO", AbsoluteY, (*CPU).slo, false},
	0x1c: {"NOP", AbsoluteX, (*CPU).nop, false},
	0x1d: {"ORA", AbsoluteX, (*CPU).ora, true},
	0x1e: {"ASL", AbsoluteX, (*CPU).asl, true},
	0x1f: {"SLO", AbsoluteX, (*CPU).slo, false},
	0x20: {"JSR", Absolute, (*CPU).jsr, true},
	0x21: {"AND", IndexedIndirect, (*CPU).and, true},
	0x23: {"RLA", IndexedIndirect, (*CPU).rla, false},
	0x24: {"BIT", ZeroPage, (*CPU).bit, true},
	0x25: {"AND", ZeroPage, (*CPU).and, true},
	0x26: {"ROL", ZeroPage, (*CPU).rol, true},
	0x27: {"RLA", ZeroPage, (*CPU).rla, false},
	0x28: {"PLP", Implied, (*CPU).plp, true},
	0x29: {"AND", Immediate, (*CPU).and, true},
	0x2a: {"ROL", Accumulator, (*CPU).rol, true},
	0x2b: {"ANC", Immediate, (*CPU).anc, false},
	0x2c: {"BIT", Absolute, (*CPU).bit, true},
	0x2d: {"AND", Absolute, (*CPU).and, true},
	0x2e: {"ROL", Absolute, (*CPU).rol, true},
	0x2f: {"RLA", Absolute, (*CPU).rla, false},
	0x30: {"BMI", Relative, (*CPU).bmi, true},
	0x31: {"AND", IndirectIndexed, (*CPU).and, true},
	0x33: {"RLA", IndirectIndexed, (*CPU).rla, false},
	0x34: {"NOP", ZeroPageX, (*CPU).nop, false},
	0x35: {"AND", ZeroPageX, (*CPU).and, true},
	0x36: {"ROL", ZeroPageX, (*CPU).rol, true},
	0x37: {"RLA", ZeroPageX, (*CPU).rla, false},
	0x38: {"SEC", Implied, (*CPU).sec, true},
	0x39: {"AND", AbsoluteY, (*CPU).and, true},
	0x3a: {"NOP", Implied, (*CPU).nop, false},
	0x3b: {"RLA", AbsoluteY, (*CPU).rla, false},
	0x3c: {"NOP", AbsoluteX, (*CPU).nop, false},
	0x3d: {"AND", AbsoluteX, (*CPU).and, true},
	0x3e: {"ROL", AbsoluteX, (*CPU).rol, true},
	0x3f: {"RLA", AbsoluteX, (*CPU).rla, false},
	0x40: {"RTI", Implied, (*CPU).rti, true},
	0x41: {"EOR", IndexedIndirect, (*CPU).eor, true},
	0x43: {"SRE", IndexedIndirect, (*CPU).sre, false},
	0x44: {"NOP", ZeroPage, (*CPU).nop, false},
	0x45: {"EOR", ZeroPage, (*CPU).eor, true},
	0x46: {"LSR", ZeroPage, (*CPU).lsr, true},
	0x47: {"SRE", ZeroPage, (*CPU).sre, false},
	0x48: {"PHA", Implied, (*CPU).pha, true},
	0x49: {"EOR", Immediate, (*CPU).eor, true},
	0x4a: {"LSR", Accumulator, (*CPU).lsr, true},
	0x4b: {"ALR", Immediate, (*CPU).alr, false},
	0x4c: {"JMP", Absolute, (*CPU).jmp, true},
	0x4d: {"EOR", Absolute, (*CPU).eor, true},
	0x4e: {"LSR", Absolute, (*CPU).lsr, true},
	0x4f: {"SRE", Absolute, (*CPU).sre, false},
	0x50: {"BVC", Relative, (*CPU).bvc, true},
	0x51: {"EOR", IndirectIndexed, (*CPU).eor, true},
	0x53: {"SRE", IndirectIndexed, (*CPU).sre, false},
	0x54: {"NOP", ZeroPageX, (*CPU).nop, false},
	0x55: {"EOR", ZeroPageX, (*CPU).eor, true},
	0x56: {"LSR", ZeroPageX, (*CPU).lsr, true},
	0x57: {"SRE", ZeroPageX, (*CPU).sre, false},
	0x58: {"CLI", Implied, (*CPU).cli, true},
	0x59: {"EOR", AbsoluteY, (*CPU).eor, true},
	0x5a: {"NOP", Implied, (*CPU).nop, false},
	0x5b: {"SRE", AbsoluteY, (*CPU).sre, false},
	0x5c: {"NOP", AbsoluteX, (*CPU).nop, false},
	0x5d: {"EOR", AbsoluteX, (*CPU).eor, true},
	0x5e: {"LSR", AbsoluteX, (*CPU).lsr, true},
	0x5f: {"SRE", AbsoluteX, (*CPU).sre, false},
	0x60: {"RTS", Implied, (*CPU).rts, true},
	0x61: {"ADC", IndexedIndirect, (*CPU).adc, true},
	0x63: {"RRA", IndexedIndirect, (*CPU).rra, false},
	0x64: {"NOP", ZeroPage, (*CPU).nop, false},
	0x65: {"ADC", ZeroPage, (*CPU).adc, true},
	0x66: {"ROR", ZeroPage, (*CPU).ror, true},
	0x67: {"RRA", ZeroPage, (*CPU).rra, false},
	0x68: {"PLA", Implied, (*CPU).pla, true},
	0x69: {"ADC", Immediate, (*CPU).adc, true},
	0x6a: {"ROR", Accumulator, (*CPU).ror, true},
	0x6c: {"JMP", Indirect, (*CPU).jmp, true},
	0x6d: {"ADC", Absolute, (*CPU).adc, true},
	0x6e: {"ROR", Absolute, (*CPU).ror, true},
	0x6f: {"RRA", Absolute, (*CPU).rra, false},
	0x70: {"BVS", Relative, (*CPU).bvs, true},
	0x71: {"ADC", IndirectIndexed, (*CPU).adc, true},
	0x73: {"RRA", IndirectIndexed, (*CPU).rra, false},
	0x74: {"NOP", ZeroPageX, (*CPU).nop, false},
	0x75: {"ADC", ZeroPageX, (*CPU).adc, true},
	0x76: {"ROR", ZeroPageX, (*CPU).ror, true},
	0x77: {"RRA", ZeroPageX, (*CPU).rra, false},
	0x78: {"SEI", Implied, (*CPU).sei, true},
	0x79: {"ADC", AbsoluteY, (*CPU).adc, true},
	0x7a: {"NOP", Implied, (*CPU).nop, false},
	0x7b: {"RRA", AbsoluteY, (*CPU).rra, false},
	0x7c: {"NOP", AbsoluteX, (*CPU).nop, false},
	0x7d: {"ADC", AbsoluteX, (*CPU).adc, true},
	0x7e: {"ROR", AbsoluteX, (*CPU).ror, true},
	0x7f: {"RRA", AbsoluteX, (*CPU).rra, false},
	0x80: {"NOP", Immediate, (*CPU).nop, false},
	0x81: {"STA", IndexedIndirect, (*CPU).sta, true},
	0x82: {"NOP", Immediate, (*CPU).nop, false},
	0x83: {"SAX", IndexedIndirect, (*CPU).sax, false},
	0x84: {"STY", ZeroPage, (*CPU).sty, true},
	0x85: {"STA", ZeroPage, (*CPU).sta, true},
	0x86: {"STX", ZeroPage, (*CPU).stx, true},
	0x87: {"SAX", ZeroPage, (*CPU).sax, false},
	0x88: {"DEY", RegisterY, (*CPU).dec, true},
	0x89: {"NOP", Immediate, (*CPU).nop, false},
	0x8a: {"TXA", Implied, (*CPU).txa, true},
	0x8c: {"STY", Absolute, (*CPU).sty, true},
	0x8d: {"STA", Absolute, (*CPU).sta, true},
	0x8e: {"STX", Absolute, (*CPU).stx, true},
	0x8f: {"SAX", Absolute, (*CPU).sax, false},
	0x90: {"BCC", Relative, (*CPU).bcc, true},
	0x91: {"STA", IndirectIndexed, (*CPU).sta, true},
	0x94: {"STY", ZeroPageX, (*CPU).sty, true},
	0x95: {"STA", ZeroPageX, (*CPU).sta, true},
	0x96: {"STX", ZeroPageY, (*CPU).stx, true},
	0x97: {"SAX", ZeroPageY, (*CPU).sax, false},
	0x98: {"TYA", Implied, (*CPU).tya, true},
	0x99: {"STA", AbsoluteY, (*CPU).sta, true},
	0x9a: {"TXS", RegisterSP, (*CPU).txs, true},
	0x9d: {"STA", AbsoluteX, (*CPU).sta, true},
	0xa0: {"LDY", Immediate, (*CPU).ldy, true},
	0xa1: {"LDA", IndexedIndirect, (*CPU).lda, true},
	0xa2: {"LDX", Immediate, (*CPU).ldx, true},
	0xa3: {"LAX", IndexedIndirect, (*CPU).lax, false},
	0xa4: {"LDY", ZeroPage, (*CPU).ldy, true},
	0xa5: {"LDA", ZeroPage, (*CPU).lda, true},
	0xa6: {"LDX", ZeroPage, (*CPU).ldx, true},
	0xa7: {"LAX", ZeroPage, (*CPU).lax, false},
	0xa8: {"TAY", Implied, (*CPU).tay, true},
	0xa9: {"LDA", Immediate, (*CPU).lda, true},
	0xaa: {"TAX", Implied, (*CPU).tax, true},
	0xac: {"LDY", Absolute, (*CPU).ldy, true},
	0xad: {"LDA", Absolute, (*CPU).lda, true},
	0xae: {"LDX", Absolute, (*CPU).ldx, true},
	0xaf: {"LAX", Absolute, (*CPU).lax, false},
	0xb0: {"BCS", Relative, (*CPU).bcs, true},
	0xb1: {"LDA", IndirectIndexed, (*CPU).lda, true},
	0xb3: {"LAX", IndirectIndexed, (*CPU).lax, false},
	0xb4: {"LDY", ZeroPageX, (*CPU).ldy, true},
	0xb5: {"LDA", ZeroPageX, (*CPU).lda, true},
	0xb6: {"LDX", ZeroPageY, (*CPU).ldx, true},
	0xb7: {"LAX", ZeroPageY, (*CPU).lax, false},
	0xb8: {"CLV", Implied, (*CPU).clv, true},
	0xb9: {"LDA", AbsoluteY, (*CPU).lda, true},
	0xba: {"TSX", RegisterSP, (*CPU).tsx, true},
	0xbb: {"LAS", AbsoluteY, (*CPU).las, false},
	0xbc: {"LDY", AbsoluteX, (*CPU).ldy, true},
	0xbd: {"LDA", AbsoluteX, (*CPU).lda, true},
	0xbe: {"LDX", AbsoluteY, (*CPU).ldx, true},
	0xbf: {"LAX", AbsoluteY, (*CPU).lax, false},
	0xc0: {"CPY", Immediate, (*CPU).cpy, true},
	0xc1: {"CMP", IndexedIndirect, (*CPU).cmp, true},
	0xc2: {"NOP", Immediate, (*CPU).nop, false},
	0xc3: {"DCP", IndexedIndirect, (*CPU).dcp, false},
	0xc4: {"CPY", ZeroPage, (*CPU).cpy, true},
	0xc5: {"CMP", ZeroPage, (*CPU).cmp, true},
	0xc6: {"DEC", ZeroPage, (*CPU).dec, true},
	0xc7: {"DCP", ZeroPage, (*CPU).dcp, false},
	0xc8: {"INY", RegisterY, (*CPU).inc, true},
	0xc9: {"CMP", Immediate, (*CPU).cmp, true},
	0xca: {"DEX", RegisterX, (*CPU).dec, true},
	0xcb: {"AXS", Immediate, (*CPU).axs, false},
	0xcc: {"CPY", Absolute, (*CPU).cpy, true},
	0xcd: {"CMP", Absolute, (*CPU).cmp, true},
	0xce: {"DEC", Absolute, (*CPU).dec, true},
	0xcf: {"DCP", Absolute, (*CPU).dcp, false},
	0xd0: {"BNE", Relative, (*CPU).bne, true},
	0xd1: {"CMP", IndirectIndexed, (*CPU).cmp, true},
	0xd3: {"DCP", IndirectIndexed, (*CPU).dcp, false},
	0xd4: {"NOP", ZeroPageX, (*CPU).nop, false},
	0xd5: {"CMP", ZeroPageX, (*CPU).cmp, true},
	0xd6: {"DEC", ZeroPageX, (*CPU).dec, true},
	0xd7: {"DCP", ZeroPageX, (*CPU).dcp, false},
	0xd8: {"CLD", Implied, (*CPU).cld, true},
	0xd9: {"CMP", AbsoluteY, (*CPU).cmp, true},
	0xda: {"NOP", Implied, (*CPU).nop, false},
	0xdb: {"DCP", AbsoluteY, (*CPU).dcp, false},
	0xdc: {"NOP", AbsoluteX, (*CPU).nop, false},
	0xdd: {"CMP", AbsoluteX, (*CPU).cmp, true},
	0xde: {"DEC", AbsoluteX, (*CPU).dec, true},
	0xdf: {"DCP", AbsoluteX, (*CPU).dcp, false},
	0xe0: {"CPX", Immediate, (*CPU).cpx, true},
	0xe1: {"SBC", IndexedIndirect, (*CPU).sbc, true},
	0xe2: {"NOP", Immediate, (*CPU).nop, false},
	0xe3: {"ISC", IndexedIndirect, (*CPU).isc, false},
	0xe4: {"CPX", ZeroPage, (*CPU).cpx, true},
	0xe5: {"SBC", ZeroPage, (*CPU).sbc, true},
	0xe6: {"INC", ZeroPage, (*CPU).inc, true},
	0xe7: {"ISC", ZeroPage, (*CPU).isc, false},
	0xe8: {"INX", RegisterX, (*CPU).inc, true},
	0xe9: {"SBC", Immediate, (*CPU).sbc, true},
	0xea: {"NOP", Implied, (*CPU).nop, true},
	0xeb: {"SBC", Immediate, (*CPU).sbc, false},
	0xec: {"CPX", Absolute, (*CPU).cpx, true},
	0xed: {"SBC", Absolute, (*CPU).sbc, true},
	0xee: {"INC", Absolute, (*CPU).inc, true},
	0xef: {"ISC", Absolute, (*CPU).isc, false},
	0xf0: {"BEQ", Relative, (*CPU).beq, true},
	0xf1: {"SBC", IndirectIndexed, (*CPU).sbc, true},
	0xf3: {"ISC", IndirectIndexed, (*CPU).isc, false},
	0xf4: {"NOP", ZeroPageX, (*CPU).nop, false},
	0xf5: {"SBC", ZeroPageX, (*CPU).sbc, true},
	0xf6: {"INC", ZeroPageX, (*CPU).inc, true},
	0xf7: {"ISC", ZeroPageX, (*CPU).isc, false},
	0xf8: {"SED", Implied, (*CPU).sed, true},
	0xf9: {"SBC", AbsoluteY, (*CPU).sbc, true},
	0xfa: {"NOP", Implied, (*CPU).nop, false},
	0xfb: {"ISC", AbsoluteY, (*CPU).isc, false},
	0xfc: {"NOP", AbsoluteX, (*CPU).nop, false},
	0xfd: {"SBC", AbsoluteX, (*CPU).sbc, true},
	0xfe: {"INC", AbsoluteX, (*CPU).inc, true},
	0xff: {"ISC", AbsoluteX, (*CPU).isc, false},
}

// Instruction is a decoded opcode together with its operand bytes.
type Instruction struct {
	Opcode   uint8
	Mnemonic string
	Mode     Mode
	Operand  [2]uint8
	Official bool
	exec     handler
}

// Size is the length of the instruction in bytes.
func (inst Instruction) Size() uint16 {
	return inst.Mode.Size()
}

func (inst Instruction) byte() uint8 {
	return inst.Operand[0]
}

func (inst Instruction) word() uint16 {
	return uint16(inst.Operand[0]) | uint16(inst.Operand[1])<<8
}

// Bytes returns the raw encoding of the instruction.
func (inst Instruction) Bytes() []uint8 {
	out := []uint8{inst.Opcode}
	return append(out, inst.Operand[:inst.Size()-1]...)
}

func (inst Instruction) String() string {
	return fmt.Sprintf("%s %s", inst.Mnemonic, inst.Mode)
}

// Decode decodes the instruction at the start of b. It reports false
// when the opcode is unmapped or b is shorter than the instruction.
func Decode(b []uint8) (Instruction, bool) {
	if len(b) == 0 {
		return Instruction{}, false
	}
	op := opcodes[b[0]]
	if op.exec == nil {
		return Instruction{}, false
	}
	size := op.size()
	if len(b) < size {
		return Instruction{}, false
	}

	inst := Instruction{
		Opcode:   b[0],
		Mnemonic: op.name,
		Mode:     op.mode,
		Official: op.official,
		exec:     op.exec,
	}
	copy(inst.Operand[:], b[1:size])
	return inst, true
}
