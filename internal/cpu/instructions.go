package cpu

// opFunc executes one instruction's body; the opcode/operand bytes
// that make up its encoding have already been fetched by the caller
// where the instruction's shape requires it, and the remainder are
// fetched by the opFunc itself.
type opFunc func(*CPU)

var opcodes [256]opFunc
var opcodesCB [256]opFunc

// getR/setR read or write one of the 8 operand-encoded locations used
// throughout the main opcode table: B C D E H L (HL) A.
func (c *CPU) getR(index uint8) uint8 {
	if index == 6 {
		return c.readHL()
	}
	return *c.r8(index)
}

func (c *CPU) setR(index uint8, v uint8) {
	if index == 6 {
		c.writeHL(v)
		return
	}
	*c.r8(index) = v
}

// getRR/setRR address BC/DE/HL/SP, the order used by 0x01/0x03/0x09/0x0B
// style opcodes (step 0x10 per pair).
func (c *CPU) getRR(n uint8) uint16 {
	switch n {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	default:
		return c.SP
	}
}

func (c *CPU) setRR(n uint8, v uint16) {
	switch n {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.SetHL(v)
	default:
		c.SP = v
	}
}

// getRR2/setRR2 address BC/DE/HL/AF, the order PUSH/POP use.
func (c *CPU) getRR2(n uint8) uint16 {
	switch n {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	default:
		return c.AF()
	}
}

func (c *CPU) setRR2(n uint8, v uint16) {
	switch n {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.SetHL(v)
	default:
		c.SetAF(v)
	}
}

func init() {
	// LD r,r' (0x40-0x7F), skipping 0x76 which is HALT.
	for dst := uint8(0); dst < 8; dst++ {
		for src := uint8(0); src < 8; src++ {
			op := 0x40 + dst*8 + src
			if op == 0x76 {
				continue
			}
			d, s := dst, src
			opcodes[op] = func(c *CPU) { c.setR(d, c.getR(s)) }
		}
	}
	opcodes[0x76] = opHALT

	// ALU A,r (0x80-0xBF): ADD ADC SUB SBC AND XOR OR CP, 8 registers each.
	for group := uint8(0); group < 8; group++ {
		for src := uint8(0); src < 8; src++ {
			op := 0x80 + group*8 + src
			g, s := group, src
			opcodes[op] = func(c *CPU) { c.aluGroup(g, c.getR(s)) }
		}
	}

	// INC r / DEC r / LD r,d8, including the (HL) forms.
	for n := uint8(0); n < 8; n++ {
		idx := n
		opcodes[0x04+n*8] = func(c *CPU) { c.setR(idx, c.inc8(c.getR(idx))) }
		opcodes[0x05+n*8] = func(c *CPU) { c.setR(idx, c.dec8(c.getR(idx))) }
		opcodes[0x06+n*8] = func(c *CPU) { c.setR(idx, c.fetch8()) }
	}

	// 16-bit register-pair group: LD rr,d16 / INC rr / DEC rr / ADD HL,rr.
	for n := uint8(0); n < 4; n++ {
		idx := n
		opcodes[0x01+idx*0x10] = func(c *CPU) { c.setRR(idx, c.fetch16()) }
		opcodes[0x03+idx*0x10] = func(c *CPU) { c.setRR(idx, c.getRR(idx)+1); c.bus.TickOnly() }
		opcodes[0x0B+idx*0x10] = func(c *CPU) { c.setRR(idx, c.getRR(idx)-1); c.bus.TickOnly() }
		opcodes[0x09+idx*0x10] = func(c *CPU) { c.addHL(c.getRR(idx)); c.bus.TickOnly() }
	}

	// PUSH/POP BC,DE,HL,AF.
	for n := uint8(0); n < 4; n++ {
		idx := n
		opcodes[0xC1+idx*0x10] = func(c *CPU) { c.setRR2(idx, c.pop16()) }
		opcodes[0xC5+idx*0x10] = func(c *CPU) { c.bus.TickOnly(); c.push16(c.getRR2(idx)) }
	}

	// Conditional branches: JR cc,e / JP cc,a16 / CALL cc,a16 / RET cc.
	for n := uint8(0); n < 4; n++ {
		cc := n
		opcodes[0x20+cc*8] = func(c *CPU) {
			e := int8(c.fetch8())
			if c.condition(cc) {
				c.bus.TickOnly()
				c.PC = uint16(int32(c.PC) + int32(e))
			}
		}
		opcodes[0xC2+cc*8] = func(c *CPU) {
			target := c.fetch16()
			if c.condition(cc) {
				c.bus.TickOnly()
				c.PC = target
			}
		}
		opcodes[0xC4+cc*8] = func(c *CPU) {
			target := c.fetch16()
			if c.condition(cc) {
				c.bus.TickOnly()
				c.push16(c.PC)
				c.PC = target
			}
		}
		opcodes[0xC0+cc*8] = func(c *CPU) {
			c.bus.TickOnly()
			if c.condition(cc) {
				c.PC = c.pop16()
				c.bus.TickOnly()
			}
		}
	}

	// RST 00h,08h,...,38h.
	for n := uint8(0); n < 8; n++ {
		vector := uint16(n) * 8
		opcodes[0xC7+n*8] = func(c *CPU) {
			c.bus.TickOnly()
			c.push16(c.PC)
			c.PC = vector
		}
	}

	// CB-prefixed rotate/shift/swap groups, 8 registers each.
	cbGroups := [...]func(*CPU, uint8) uint8{
		func(c *CPU, v uint8) uint8 { return c.rlc(v) },
		func(c *CPU, v uint8) uint8 { return c.rrc(v) },
		func(c *CPU, v uint8) uint8 { return c.rl(v) },
		func(c *CPU, v uint8) uint8 { return c.rr(v) },
		func(c *CPU, v uint8) uint8 { return c.sla(v) },
		func(c *CPU, v uint8) uint8 { return c.sra(v) },
		func(c *CPU, v uint8) uint8 { return c.swap(v) },
		func(c *CPU, v uint8) uint8 { return c.srl(v) },
	}
	for group := uint8(0); group < 8; group++ {
		fn := cbGroups[group]
		for reg := uint8(0); reg < 8; reg++ {
			op := group*8 + reg
			r := reg
			opcodesCB[op] = func(c *CPU) { c.setR(r, fn(c, c.getR(r))) }
		}
	}

	// CB BIT b,r / RES b,r / SET b,r.
	for bit := uint8(0); bit < 8; bit++ {
		for reg := uint8(0); reg < 8; reg++ {
			b, r := bit, reg
			opcodesCB[0x40+b*8+r] = func(c *CPU) { c.bit(b, c.getR(r)) }
			opcodesCB[0x80+b*8+r] = func(c *CPU) { c.setR(r, c.getR(r)&^(1<<b)) }
			opcodesCB[0xC0+b*8+r] = func(c *CPU) { c.setR(r, c.getR(r)|(1<<b)) }
		}
	}
}

// aluGroup dispatches one of the 8 ALU-A operations by the 0x80-0xBF
// table's group index.
func (c *CPU) aluGroup(group uint8, operand uint8) {
	switch group {
	case 0:
		c.aluAdd(operand, false)
	case 1:
		c.aluAdd(operand, c.HasFlag(FlagCarry))
	case 2:
		c.A = c.aluSub(operand, false)
	case 3:
		c.A = c.aluSub(operand, c.HasFlag(FlagCarry))
	case 4:
		c.aluAnd(operand)
	case 5:
		c.aluXor(operand)
	case 6:
		c.aluOr(operand)
	case 7:
		c.aluSub(operand, false) // CP: flags only, result discarded
	}
}

func opHALT(c *CPU) {
	if !c.irq.IME && c.irq.Pending() {
		c.mode = modeHaltBug
	} else {
		c.mode = modeHalt
	}
}

func init() {
	opcodes[0x00] = func(c *CPU) {}

	opcodes[0x02] = func(c *CPU) { c.bus.Write(c.BC(), c.A) }
	opcodes[0x12] = func(c *CPU) { c.bus.Write(c.DE(), c.A) }
	opcodes[0x0A] = func(c *CPU) { c.A = c.bus.Read(c.BC()) }
	opcodes[0x1A] = func(c *CPU) { c.A = c.bus.Read(c.DE()) }

	opcodes[0x22] = func(c *CPU) { c.bus.Write(c.HL(), c.A); c.SetHL(c.HL() + 1) }
	opcodes[0x32] = func(c *CPU) { c.bus.Write(c.HL(), c.A); c.SetHL(c.HL() - 1) }
	opcodes[0x2A] = func(c *CPU) { c.A = c.bus.Read(c.HL()); c.SetHL(c.HL() + 1) }
	opcodes[0x3A] = func(c *CPU) { c.A = c.bus.Read(c.HL()); c.SetHL(c.HL() - 1) }

	opcodes[0x07] = func(c *CPU) { c.A = c.rlc(c.A); c.SetFlag(FlagZero, false) }
	opcodes[0x0F] = func(c *CPU) { c.A = c.rrc(c.A); c.SetFlag(FlagZero, false) }
	opcodes[0x17] = func(c *CPU) { c.A = c.rl(c.A); c.SetFlag(FlagZero, false) }
	opcodes[0x1F] = func(c *CPU) { c.A = c.rr(c.A); c.SetFlag(FlagZero, false) }

	opcodes[0x08] = func(c *CPU) {
		addr := c.fetch16()
		c.bus.Write(addr, uint8(c.SP))
		c.bus.Write(addr+1, uint8(c.SP>>8))
	}

	opcodes[0x10] = func(c *CPU) {
		c.fetch8() // STOP's second byte, conventionally 0x00
		if !c.bus.CommitSpeedSwitch() {
			c.mode = modeStop
		}
	}

	opcodes[0x18] = func(c *CPU) {
		e := int8(c.fetch8())
		c.bus.TickOnly()
		c.PC = uint16(int32(c.PC) + int32(e))
	}

	opcodes[0x27] = func(c *CPU) { c.daa() }
	opcodes[0x2F] = func(c *CPU) {
		c.A = ^c.A
		c.SetFlag(FlagSubtract, true)
		c.SetFlag(FlagHalfCarry, true)
	}
	opcodes[0x37] = func(c *CPU) {
		c.SetFlag(FlagSubtract, false)
		c.SetFlag(FlagHalfCarry, false)
		c.SetFlag(FlagCarry, true)
	}
	opcodes[0x3F] = func(c *CPU) {
		c.SetFlag(FlagSubtract, false)
		c.SetFlag(FlagHalfCarry, false)
		c.SetFlag(FlagCarry, !c.HasFlag(FlagCarry))
	}

	opcodes[0xC9] = func(c *CPU) { c.PC = c.pop16(); c.bus.TickOnly() }
	opcodes[0xD9] = func(c *CPU) { c.PC = c.pop16(); c.bus.TickOnly(); c.irq.IME = true }

	opcodes[0xC3] = func(c *CPU) { target := c.fetch16(); c.bus.TickOnly(); c.PC = target }
	opcodes[0xE9] = func(c *CPU) { c.PC = c.HL() }
	opcodes[0xCD] = func(c *CPU) {
		target := c.fetch16()
		c.bus.TickOnly()
		c.push16(c.PC)
		c.PC = target
	}

	aluImm := [...]func(*CPU, uint8){
		func(c *CPU, v uint8) { c.aluAdd(v, false) },
		func(c *CPU, v uint8) { c.aluAdd(v, c.HasFlag(FlagCarry)) },
		func(c *CPU, v uint8) { c.A = c.aluSub(v, false) },
		func(c *CPU, v uint8) { c.A = c.aluSub(v, c.HasFlag(FlagCarry)) },
		func(c *CPU, v uint8) { c.aluAnd(v) },
		func(c *CPU, v uint8) { c.aluXor(v) },
		func(c *CPU, v uint8) { c.aluOr(v) },
		func(c *CPU, v uint8) { c.aluSub(v, false) },
	}
	immOps := [...]uint8{0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE}
	for i, op := range immOps {
		fn := aluImm[i]
		opcodes[op] = func(c *CPU) { fn(c, c.fetch8()) }
	}

	opcodes[0xE0] = func(c *CPU) { addr := 0xFF00 + uint16(c.fetch8()); c.bus.Write(addr, c.A) }
	opcodes[0xF0] = func(c *CPU) { addr := 0xFF00 + uint16(c.fetch8()); c.A = c.bus.Read(addr) }
	opcodes[0xE2] = func(c *CPU) { c.bus.Write(0xFF00+uint16(c.C), c.A) }
	opcodes[0xF2] = func(c *CPU) { c.A = c.bus.Read(0xFF00 + uint16(c.C)) }
	opcodes[0xEA] = func(c *CPU) { c.bus.Write(c.fetch16(), c.A) }
	opcodes[0xFA] = func(c *CPU) { c.A = c.bus.Read(c.fetch16()) }

	opcodes[0xE8] = func(c *CPU) {
		e := int8(c.fetch8())
		c.bus.TickOnly()
		c.bus.TickOnly()
		c.SP = c.addSPSigned(e)
	}
	opcodes[0xF8] = func(c *CPU) {
		e := int8(c.fetch8())
		c.bus.TickOnly()
		c.SetHL(c.addSPSigned(e))
	}
	opcodes[0xF9] = func(c *CPU) { c.bus.TickOnly(); c.SP = c.HL() }

	opcodes[0xF3] = func(c *CPU) { c.irq.IME = false }
	opcodes[0xFB] = func(c *CPU) { c.irq.RequestEI() }

	// Illegal/unassigned opcodes are left nil; execute() sends the CPU
	// to the lockup mode real hardware enters for them.
	for _, op := range [...]uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		opcodes[op] = nil
	}
}
