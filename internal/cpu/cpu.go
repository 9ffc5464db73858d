// Package cpu implements the Sharp LR35902 instruction set: fetch and
// execute, flag semantics, the HALT/STOP mode state machine including
// the halt bug, and interrupt dispatch.
package cpu

import (
	"github.com/haldane-systems/gbcore/internal/bus"
	"github.com/haldane-systems/gbcore/internal/interrupts"
	"github.com/haldane-systems/gbcore/internal/types"
)

// mode tracks the states Step can be in besides normal fetch/execute.
type mode uint8

const (
	modeNormal mode = iota
	modeHalt
	modeHaltBug
	modeStop
	modeLockup // an illegal opcode was executed; the real CPU hangs here
)

// CPU executes instructions against a Bus, one at a time, each call to
// Step consuming exactly the machine cycles real hardware would.
type CPU struct {
	Registers
	PC, SP uint16

	bus *bus.Bus
	irq *interrupts.State

	mode mode

	// Debug, when true, sets DebugBreakpoint whenever LD B,B executes -
	// a convention emulator authors use as a software breakpoint.
	Debug           bool
	DebugBreakpoint bool
}

// New returns a CPU positioned at the reset vector if bus is still
// running its boot ROM, or at the documented post-boot register state
// otherwise.
func New(b *bus.Bus, model types.Model) *CPU {
	c := &CPU{bus: b, irq: b.IRQ}
	if b.BootROMActive() {
		return c
	}
	c.SP = 0xFFFE
	c.PC = 0x0100
	if model == types.ModelCGB {
		c.A, c.F = 0x11, 0x80
		c.B, c.C = 0x00, 0x00
		c.D, c.E = 0xFF, 0x56
		c.H, c.L = 0x00, 0x0D
	} else {
		c.A, c.F = 0x01, 0xB0
		c.B, c.C = 0x00, 0x13
		c.D, c.E = 0x00, 0xD8
		c.H, c.L = 0x01, 0x4D
	}
	return c
}

// Halted reports whether the CPU is parked in HALT.
func (c *CPU) Halted() bool { return c.mode == modeHalt }

// Step executes one instruction (or one cycle of HALT/STOP/lockup
// idling) and services a pending interrupt if one is enabled.
func (c *CPU) Step() {
	switch c.mode {
	case modeStop:
		c.bus.TickOnly()
		if c.bus.CommitSpeedSwitch() || c.bus.AnyButtonPressed() {
			c.mode = modeNormal
		}
		return
	case modeLockup:
		c.bus.TickOnly()
		return
	case modeHalt:
		c.bus.TickOnly()
		if c.irq.Pending() {
			c.mode = modeNormal
			if c.irq.IME {
				c.dispatchInterrupt()
			}
		}
		return
	case modeHaltBug:
		op := c.bus.Read(c.PC) // PC deliberately not advanced
		c.mode = modeNormal
		c.execute(op)
	default:
		c.execute(c.fetch8())
	}

	c.irq.Tick()
	if c.irq.IME && c.irq.Pending() {
		c.dispatchInterrupt()
	}
}

func (c *CPU) execute(opcode uint8) {
	if opcode == 0xCB {
		cb := c.fetch8()
		opcodesCB[cb](c)
		return
	}
	fn := opcodes[opcode]
	if fn == nil {
		c.mode = modeLockup
		return
	}
	fn(c)
	if c.Debug && opcode == 0x40 { // LD B,B
		c.DebugBreakpoint = true
	}
}

// dispatchInterrupt runs the documented 5-machine-cycle sequence: two
// internal cycles, the two-byte PC push, and a final internal cycle to
// load the vector. If the high-byte push happens to land on 0xFFFF and
// clear the enable bit for the interrupt being serviced, the CPU jumps
// to 0x0000 instead and leaves the request flag set.
func (c *CPU) dispatchInterrupt() {
	c.bus.TickOnly()
	c.bus.TickOnly()

	kind := c.irq.NextKind()
	c.irq.IME = false

	c.SP--
	c.bus.Write(c.SP, uint8(c.PC>>8))
	c.SP--
	c.bus.Write(c.SP, uint8(c.PC))

	vector := kind.Vector()
	if c.irq.Enable&(1<<uint8(kind)) == 0 {
		vector = 0x0000
	} else {
		c.irq.Clear(kind)
	}
	c.PC = vector
	c.bus.TickOnly()
}

// --- fetch/memory helpers ---

func (c *CPU) fetch8() uint8 {
	v := c.bus.Read(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) readHL() uint8      { return c.bus.Read(c.HL()) }
func (c *CPU) writeHL(v uint8)    { c.bus.Write(c.HL(), v) }

func (c *CPU) push16(v uint16) {
	c.SP--
	c.bus.Write(c.SP, uint8(v>>8))
	c.SP--
	c.bus.Write(c.SP, uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := c.bus.Read(c.SP)
	c.SP++
	hi := c.bus.Read(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// condition decodes the 2-bit cc field opcodes 0x20/28/30/38 and
// 0xC0/C2/C4/C8/CA/CC/D0/D2/D4/D8/DA/DC share.
func (c *CPU) condition(cc uint8) bool {
	switch cc {
	case 0:
		return !c.HasFlag(FlagZero)
	case 1:
		return c.HasFlag(FlagZero)
	case 2:
		return !c.HasFlag(FlagCarry)
	default:
		return c.HasFlag(FlagCarry)
	}
}

var _ types.Stater = (*CPU)(nil)

func (c *CPU) Save(s *types.State) {
	s.Write8(c.A)
	s.Write8(c.F)
	s.Write8(c.B)
	s.Write8(c.C)
	s.Write8(c.D)
	s.Write8(c.E)
	s.Write8(c.H)
	s.Write8(c.L)
	s.Write16(c.SP)
	s.Write16(c.PC)
	s.Write8(uint8(c.mode))
}

func (c *CPU) Load(s *types.State) {
	c.A = s.Read8()
	c.F = s.Read8()
	c.B = s.Read8()
	c.C = s.Read8()
	c.D = s.Read8()
	c.E = s.Read8()
	c.H = s.Read8()
	c.L = s.Read8()
	c.SP = s.Read16()
	c.PC = s.Read16()
	c.mode = mode(s.Read8())
}
