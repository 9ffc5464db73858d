// Package serial implements the Game Boy's link-cable byte shift
// register. The core never implements a concrete accessory (the
// printer is explicitly out of scope); it only exposes the Device
// collaborator interface a host can wire up.
package serial

import (
	"github.com/haldane-systems/gbcore/internal/interrupts"
	"github.com/haldane-systems/gbcore/internal/types"
)

// Device is the narrow interface an external serial peer implements.
// ExchangeBit is called once per shifted bit with the bit this console
// is sending out (MSB first) and returns the bit the peer sends back.
type Device interface {
	ExchangeBit(bitOut bool) bool
}

// Controller holds SB (shift register) and SC (control) and the
// internal clock bit-tick state machine.
type Controller struct {
	sb uint8
	sc uint8

	transferring bool
	bitsShifted  uint8
	lastEdgeBit  bool

	device Device
	irq    interrupts.Sink
}

// New returns a Controller with no transfer in progress.
func New(irq interrupts.Sink) *Controller {
	return &Controller{irq: irq}
}

// Connect wires an external peer; Disconnect removes it, after which
// incoming bits read back as 1 (an idle, unterminated line).
func (c *Controller) Connect(d Device)  { c.device = d }
func (c *Controller) Disconnect()       { c.device = nil }

func (c *Controller) ReadSB() uint8 { return c.sb }

func (c *Controller) ReadSC() uint8 {
	v := c.sc & 0x81
	if v&0x01 != 0 {
		// bit 1 (CGB fast clock select) is not stored: it reads back
		// as 0 on both models, whatever was written.
	}
	return v | 0x7C
}

// WriteSC starts a transfer if bit 7 is set with the internal clock
// source (bit 0) selected; an external-clock transfer waits for the
// peer to drive bits instead and is modeled as a no-op shift counter
// here since nothing in this core drives an external clock.
func (c *Controller) WriteSC(v uint8) {
	c.sc = v
	if v&0x80 != 0 && v&0x01 != 0 {
		c.transferring = true
		c.bitsShifted = 0
	} else if v&0x80 == 0 {
		c.transferring = false
	}
}

func (c *Controller) WriteSB(v uint8) { c.sb = v }

// Tick is called once per machine cycle (after the timer, per the
// bus's fixed fan-out order) with the timer's current 16-bit divider
// value, from which the internal serial clock bit is derived. The
// divider advances 4 per machine cycle, so divider bit 8 (bit 6 of a
// machine-cycle count, 8192 Hz) is used at normal speed and divider
// bit 3 (bit 1 of a machine-cycle count) in CGB double speed.
func (c *Controller) Tick(div uint16, doubleSpeed bool) {
	bit := uint8(8)
	if doubleSpeed {
		bit = 3
	}
	current := div&(1<<bit) != 0
	if c.transferring && c.lastEdgeBit && !current {
		c.shiftBit()
	}
	c.lastEdgeBit = current
}

func (c *Controller) shiftBit() {
	bitOut := c.sb&0x80 != 0
	bitIn := true
	if c.device != nil {
		bitIn = c.device.ExchangeBit(bitOut)
	}
	c.sb <<= 1
	if bitIn {
		c.sb |= 1
	}
	c.bitsShifted++
	if c.bitsShifted == 8 {
		c.transferring = false
		c.sc &^= 0x80
		c.bitsShifted = 0
		c.irq.Request(interrupts.Serial)
	}
}

var _ types.Stater = (*Controller)(nil)

func (c *Controller) Save(s *types.State) {
	s.Write8(c.sb)
	s.Write8(c.sc)
	s.WriteBool(c.transferring)
	s.Write8(c.bitsShifted)
	s.WriteBool(c.lastEdgeBit)
}

func (c *Controller) Load(s *types.State) {
	c.sb = s.Read8()
	c.sc = s.Read8()
	c.transferring = s.ReadBool()
	c.bitsShifted = s.Read8()
	c.lastEdgeBit = s.ReadBool()
}
