package cpu

// adcBinary adds with carry without decimal correction.
func (c *CPU) adcBinary(m uint8) {
	r16 := uint16(c.a) + uint16(m)
	if c.getFlag(FlagCarry) {
		r16++
	}
	r8 := uint8(r16)
	c.setFlag(FlagCarry, r16 > 0xff)
	c.setFlag(FlagOverflow, isSameSign(c.a, m) && !isSameSign(c.a, r8))
	c.a = r8
	c.setFlagsZN(c.a)
}

// adcDecimal adds two packed BCD bytes digit by digit,
// the low digit carry goes into the high digit.
func (c *CPU) adcDecimal(m uint8) {
	lo := uint16(c.a&0x0f) + uint16(m&0x0f)
	if c.getFlag(FlagCarry) {
		lo++
	}
	hi := uint16(c.a>>4) + uint16(m>>4)
	if lo > 9 {
		lo += 6
		hi++
	}
	// V is taken before the high digit is corrected
	partial := uint8(hi<<4) | uint8(lo&0x0f)
	c.setFlag(FlagOverflow, isSameSign(c.a, m) && !isSameSign(c.a, partial))
	if hi > 9 {
		hi += 6
	}
	c.setFlag(FlagCarry, hi > 0x0f)
	c.a = uint8(hi<<4) | uint8(lo&0x0f)
	c.setFlagsZN(c.a)
}

func (c *CPU) addWithCarry(m uint8) {
	if c.decimal && c.getFlag(FlagDecimal) {
		c.adcDecimal(m)
		return
	}
	c.adcBinary(m)
}

func (c *CPU) subWithCarry(m uint8) {
	if !c.decimal || !c.getFlag(FlagDecimal) {
		c.adcBinary(^m)
		return
	}

	borrow := 0
	if !c.getFlag(FlagCarry) {
		borrow = 1
	}
	// C and V follow the binary subtraction
	r16 := int(c.a) - int(m) - borrow
	c.setFlag(FlagCarry, r16 >= 0)
	c.setFlag(FlagOverflow, !isSameSign(c.a, m) && !isSameSign(c.a, uint8(r16)))

	lo := int(c.a&0x0f) - int(m&0x0f) - borrow
	hi := int(c.a>>4) - int(m>>4)
	if lo < 0 {
		lo += 10
		hi--
	}
	if hi < 0 {
		hi += 10
	}
	c.a = uint8(hi&0x0f)<<4 | uint8(lo&0x0f)
	c.setFlagsZN(c.a)
}

func (c *CPU) compare(reg, m uint8) {
	c.setFlag(FlagCarry, reg >= m)
	c.setFlagsZN(reg - m)
}

func (c *CPU) branchIf(condition bool, op operand) {
	if condition {
		c.pc = op.addr
	}
}

func (c *CPU) adc(op operand) {
	c.addWithCarry(c.load(op))
}

func (c *CPU) and(op operand) {
	c.a &= c.load(op)
	c.setFlagsZN(c.a)
}

func (c *CPU) asl(op operand) {
	m := c.load(op)
	c.setFlag(FlagCarry, m&0x80 != 0)
	r := m << 1
	c.store(op, r)
	c.setFlagsZN(r)
}

func (c *CPU) bcc(op operand) {
	c.branchIf(!c.getFlag(FlagCarry), op)
}

func (c *CPU) bcs(op operand) {
	c.branchIf(c.getFlag(FlagCarry), op)
}

func (c *CPU) beq(op operand) {
	c.branchIf(c.getFlag(FlagZero), op)
}

func (c *CPU) bit(op operand) {
	m := c.load(op)
	c.setFlag(FlagZero, c.a&m == 0)
	c.setFlag(FlagNegative, m&0x80 != 0)
	c.setFlag(FlagOverflow, m&0x40 != 0)
}

func (c *CPU) bmi(op operand) {
	c.branchIf(c.getFlag(FlagNegative), op)
}

func (c *CPU) bne(op operand) {
	c.branchIf(!c.getFlag(FlagZero), op)
}

func (c *CPU) bpl(op operand) {
	c.branchIf(!c.getFlag(FlagNegative), op)
}

func (c *CPU) brk(operand) {
	// BRK is followed by a padding byte the return skips
	c.pc++
	c.stackPush16(c.pc)
	c.pushFlags(true)
	c.setFlag(FlagInterrupt, true)
	c.setFlag(FlagBreak, true)
	c.pc = c.read16(vectorIRQ)
}

func (c *CPU) bvc(op operand) {
	c.branchIf(!c.getFlag(FlagOverflow), op)
}

func (c *CPU) bvs(op operand) {
	c.branchIf(c.getFlag(FlagOverflow), op)
}

func (c *CPU) clc(operand) {
	c.setFlag(FlagCarry, false)
}

func (c *CPU) cld(operand) {
	c.setFlag(FlagDecimal, false)
}

func (c *CPU) cli(operand) {
	c.setFlag(FlagInterrupt, false)
}

func (c *CPU) clv(operand) {
	c.setFlag(FlagOverflow, false)
}

func (c *CPU) cmp(op operand) {
	c.compare(c.a, c.load(op))
}

func (c *CPU) cpx(op operand) {
	c.compare(c.x, c.load(op))
}

func (c *CPU) cpy(op operand) {
	c.compare(c.y, c.load(op))
}

// dec serves DEC, DEX and DEY, the register modes resolve to X or Y.
func (c *CPU) dec(op operand) {
	r := c.load(op) - 1
	c.store(op, r)
	c.setFlagsZN(r)
}

func (c *CPU) eor(op operand) {
	c.a ^= c.load(op)
	c.setFlagsZN(c.a)
}

// inc serves INC, INX and INY.
func (c *CPU) inc(op operand) {
	r := c.load(op) + 1
	c.store(op, r)
	c.setFlagsZN(r)
}

func (c *CPU) jmp(op operand) {
	c.pc = op.addr
}

func (c *CPU) jsr(op operand) {
	// the return address pushed is the last byte of JSR
	c.stackPush16(c.pc - 1)
	c.pc = op.addr
}

func (c *CPU) lda(op operand) {
	c.a = c.load(op)
	c.setFlagsZN(c.a)
}

func (c *CPU) ldx(op operand) {
	c.x = c.load(op)
	c.setFlagsZN(c.x)
}

func (c *CPU) ldy(op operand) {
	c.y = c.load(op)
	c.setFlagsZN(c.y)
}

func (c *CPU) lsr(op operand) {
	m := c.load(op)
	c.setFlag(FlagCarry, m&0x1 != 0)
	r := m >> 1
	c.store(op, r)
	c.setFlagsZN(r)
}

func (c *CPU) nop(op operand) {
	// the unofficial NOPs still perform the read
	if op.kind == operandMemory {
		c.load(op)
	}
}

func (c *CPU) ora(op operand) {
	c.a |= c.load(op)
	c.setFlagsZN(c.a)
}

func (c *CPU) pha(operand) {
	c.stackPush8(c.a)
}

func (c *CPU) php(operand) {
	c.pushFlags(true)
}

func (c *CPU) pla(operand) {
	c.a = c.stackPop8()
	c.setFlagsZN(c.a)
}

func (c *CPU) plp(operand) {
	c.pullFlags()
}

func (c *CPU) rotateLeft(m uint8) uint8 {
	r := m << 1
	if c.getFlag(FlagCarry) {
		r |= 0x1
	}
	c.setFlag(FlagCarry, m&0x80 != 0)
	return r
}

func (c *CPU) rotateRight(m uint8) uint8 {
	r := m >> 1
	if c.getFlag(FlagCarry) {
		r |= 0x80
	}
	c.setFlag(FlagCarry, m&0x1 != 0)
	return r
}

func (c *CPU) rol(op operand) {
	r := c.rotateLeft(c.load(op))
	c.store(op, r)
	c.setFlagsZN(r)
}

func (c *CPU) ror(op operand) {
	r := c.rotateRight(c.load(op))
	c.store(op, r)
	c.setFlagsZN(r)
}

func (c *CPU) rti(operand) {
	c.pullFlags()
	c.pc = c.stackPop16()
}

func (c *CPU) rts(operand) {
	c.pc = c.stackPop16() + 1
}

func (c *CPU) sbc(op operand) {
	c.subWithCarry(c.load(op))
}

func (c *CPU) sec(operand) {
	c.setFlag(FlagCarry, true)
}

func (c *CPU) sed(operand) {
	c.setFlag(FlagDecimal, true)
}

func (c *CPU) sei(operand) {
	c.setFlag(FlagInterrupt, true)
}

func (c *CPU) sta(op operand) {
	c.store(op, c.a)
}

func (c *CPU) stx(op operand) {
	c.store(op, c.x)
}

func (c *CPU) sty(op operand) {
	c.store(op, c.y)
}

func (c *CPU) tax(operand) {
	c.x = c.a
	c.setFlagsZN(c.x)
}

func (c *CPU) tay(operand) {
	c.y = c.a
	c.setFlagsZN(c.y)
}

func (c *CPU) tsx(op operand) {
	c.x = c.load(op)
	c.setFlagsZN(c.x)
}

func (c *CPU) txa(operand) {
	c.a = c.x
	c.setFlagsZN(c.a)
}

func (c *CPU) txs(op operand) {
	c.store(op, c.x)
}

func (c *CPU) tya(operand) {
	c.a = c.y
	c.setFlagsZN(c.a)
}

// Unofficial instructions

func (c *CPU) lax(op operand) {
	m := c.load(op)
	c.a = m
	c.x = m
	c.setFlagsZN(m)
}

func (c *CPU) sax(op operand) {
	c.store(op, c.a&c.x)
}

// axs sets X to (A AND X) - operand, without borrow,
// carry is set like in CMP.
func (c *CPU) axs(op operand) {
	m := c.load(op)
	t := c.a & c.x
	c.setFlag(FlagCarry, t >= m)
	c.x = t - m
	c.setFlagsZN(c.x)
}

func (c *CPU) dcp(op operand) {
	m := c.load(op) - 1
	c.store(op, m)
	c.compare(c.a, m)
}

func (c *CPU) isc(op operand) {
	m := c.load(op) + 1
	c.store(op, m)
	c.subWithCarry(m)
}

func (c *CPU) slo(op operand) {
	m := c.load(op)
	c.setFlag(FlagCarry, m&0x80 != 0)
	m <<= 1
	c.store(op, m)
	c.a |= m
	c.setFlagsZN(c.a)
}

func (c *CPU) rla(op operand) {
	m := c.rotateLeft(c.load(op))
	c.store(op, m)
	c.a &= m
	c.setFlagsZN(c.a)
}

func (c *CPU) sre(op operand) {
	m := c.load(op)
	c.setFlag(FlagCarry, m&0x1 != 0)
	m >>= 1
	c.store(op, m)
	c.a ^= m
	c.setFlagsZN(c.a)
}

func (c *CPU) rra(op operand) {
	m := c.rotateRight(c.load(op))
	c.store(op, m)
	c.addWithCarry(m)
}

func (c *CPU) anc(op operand) {
	c.a &= c.load(op)
	c.setFlagsZN(c.a)
	c.setFlag(FlagCarry, c.a&0x80 != 0)
}

func (c *CPU) alr(op operand) {
	c.a &= c.load(op)
	c.setFlag(FlagCarry, c.a&0x1 != 0)
	c.a >>= 1
	c.setFlagsZN(c.a)
}

func (c *CPU) las(op operand) {
	r := c.load(op) & c.sp
	c.a = r
	c.x = r
	c.sp = r
	c.setFlagsZN(r)
}
