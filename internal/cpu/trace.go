package cpu

import (
	"fmt"
	"strings"
)

// Trace describes one executed step.
type Trace struct {
	PC     uint16
	Opcode uint8
	// Decoded is false when the opcode was skipped as unknown.
	Decoded bool
	Inst    Instruction
	// Operand is the operand syntax with the effective address.
	Operand string
	// Regs is the register state after the step.
	Regs Registers
}

func hexBytes(b []uint8) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}

// String formats the trace like
//
//	C000  4C F5 C5  JMP $C5F5                A:00 X:00 Y:00 P:nv-bdIzc SP:FD
func (t Trace) String() string {
	raw := []uint8{t.Opcode}
	text := "???"
	if t.Decoded {
		raw = t.Inst.Bytes()
		text = strings.TrimSpace(t.Inst.Mnemonic + " " + t.Operand)
	}
	return fmt.Sprintf("%04X  %-8s  %-24s A:%02X X:%02X Y:%02X P:%s SP:%02X",
		t.PC, hexBytes(raw), text, t.Regs.A, t.Regs.X, t.Regs.Y, t.Regs.P, t.Regs.SP)
}

// peek reads without side effects when the bus supports it.
// It reports false for unmapped addresses.
func (c *CPU) peek(addr uint16) (uint8, bool) {
	if p, ok := c.bus.(peeker); ok {
		return p.Peek8(addr)
	}
	return c.read8(addr), true
}

// Disassemble returns a map of addresses and their corresponding instructions
// from `from` to `to` inclusive. Unmapped addresses are left out.
func (c *CPU) Disassemble(from, to uint16) map[uint16]string {
	disasm := make(map[uint16]string)

	addr := uint32(from)
	for addr <= uint32(to) {
		pc := uint16(addr)
		opcode, ok := c.peek(pc)
		if !ok {
			addr++
			continue
		}

		size := opcodes[opcode].size()
		raw := []uint8{opcode}
		for i := 1; i < size && addr+uint32(i) <= 0xffff; i++ {
			v, _ := c.peek(pc + uint16(i))
			raw = append(raw, v)
		}

		inst, ok := Decode(raw)
		if !ok {
			disasm[pc] = fmt.Sprintf("$%04X: ???", pc)
			addr++
			continue
		}

		next := pc + inst.Size()
		disasm[pc] = strings.TrimSpace(fmt.Sprintf("$%04X: %s %s", pc, inst.Mnemonic, inst.Syntax(next))) +
			fmt.Sprintf(" {%s}", inst.Mode)
		addr += uint32(inst.Size())
	}

	return disasm
}
