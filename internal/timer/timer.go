// Package timer implements the Game Boy's free-running divider and
// configurable-rate TIMA counter.
package timer

import (
	"github.com/haldane-systems/gbcore/internal/interrupts"
	"github.com/haldane-systems/gbcore/internal/types"
)

// selectedBit maps the 2-bit TAC frequency selector to the divider
// bit whose falling edge clocks TIMA.
var selectedBit = [4]uint8{9, 3, 5, 7}

// Controller holds DIV/TIMA/TMA/TAC and the one-cycle reload-delay
// state machine that overflow triggers.
type Controller struct {
	div  uint16 // free-running 16-bit divider; DIV register is the high byte
	tima uint8
	tma  uint8
	tac  uint8

	enabled  bool
	freqSel  uint8
	lastEdge bool // previous value of the selected divider bit, for edge detection

	reloadCycle     bool // TIMA is in the 1-machine-cycle "stuck at 0" window after overflow
	reloadCountdown int  // T-cycles remaining in that window
	reloadCancel    bool // a write to TIMA during that window cancels the reload

	irq interrupts.Sink
}

// New returns a Controller with the documented post-boot divider
// value.
func New(irq interrupts.Sink) *Controller {
	return &Controller{div: 0xABCC, irq: irq}
}

// Tick advances the timer by one machine cycle at the *current* CPU
// speed; callers call this once per CPU machine cycle, so in double
// speed mode it runs twice per base-rate machine cycle and DIV counts
// at 32768 Hz.
func (c *Controller) Tick() {
	c.advance(4)
}

// advance steps the divider by n T-cycles, checking the selected bit
// for a falling edge after every single increment.
func (c *Controller) advance(tCycles int) {
	for i := 0; i < tCycles; i++ {
		c.div++
		c.checkEdge()
	}
}

func (c *Controller) currentBitSet() bool {
	return c.div&(1<<selectedBit[c.freqSel]) != 0 && c.enabled
}

func (c *Controller) checkEdge() {
	if c.reloadCycle {
		c.reloadCountdown--
		if c.reloadCountdown == 0 {
			c.finishReload()
		}
	}
	edge := c.currentBitSet()
	if c.lastEdge && !edge {
		c.incrementTIMA()
	}
	c.lastEdge = edge
}

// finishReload ends the one-machine-cycle window during which TIMA
// reads back as 0 before TMA is copied in and the Timer interrupt is
// requested.
func (c *Controller) finishReload() {
	c.reloadCycle = false
	if !c.reloadCancel {
		c.tima = c.tma
		c.irq.Request(interrupts.Timer)
	}
	c.reloadCancel = false
}

func (c *Controller) incrementTIMA() {
	c.tima++
	if c.tima == 0 {
		c.reloadCycle = true
		c.reloadCountdown = 4 // one machine cycle, in T-cycles
	}
}

// ReadDIV returns the high byte of the free-running divider.
func (c *Controller) ReadDIV() uint8 { return uint8(c.div >> 8) }

// DivValue returns the full 16-bit divider, used by the APU's frame
// sequencer and the serial controller's bit-clock edge detection.
func (c *Controller) DivValue() uint16 { return c.div }

// WriteDIV resets the divider to zero. If the reset crosses the
// selected bit's falling edge, TIMA increments immediately.
func (c *Controller) WriteDIV() {
	wasSet := c.currentBitSet()
	c.div = 0
	if wasSet {
		c.incrementTIMA()
	}
	c.lastEdge = c.currentBitSet()
}

func (c *Controller) ReadTIMA() uint8 { return c.tima }

// WriteTIMA writes TIMA directly; if the reload window is active, the
// write also aborts the pending TMA reload/interrupt.
func (c *Controller) WriteTIMA(v uint8) {
	if c.reloadCycle {
		c.reloadCancel = true
	}
	c.tima = v
}

func (c *Controller) ReadTMA() uint8 { return c.tma }

// WriteTMA sets the reload value; if the reload window is currently
// active, the new value is also applied to TIMA immediately.
func (c *Controller) WriteTMA(v uint8) {
	c.tma = v
	if c.reloadCycle {
		c.tima = v
	}
}

func (c *Controller) ReadTAC() uint8 { return c.tac&0xF8 | 0xF8 | c.freqSel&0x03 | boolBit(c.enabled, 2) }

// WriteTAC updates the enable bit and frequency selector. Disabling
// the timer (or changing frequency) while the now-unselected bit is
// set causes an immediate TIMA increment on real hardware, since the
// falling edge is effectively forced.
func (c *Controller) WriteTAC(v uint8) {
	wasSet := c.currentBitSet()
	c.tac = v
	c.enabled = v&0x04 != 0
	c.freqSel = v & 0x03
	isSet := c.currentBitSet()
	if wasSet && !isSet {
		c.incrementTIMA()
	}
	c.lastEdge = isSet
}

func boolBit(b bool, bit uint8) uint8 {
	if b {
		return 1 << bit
	}
	return 0
}

var _ types.Stater = (*Controller)(nil)

func (c *Controller) Save(s *types.State) {
	s.Write16(c.div)
	s.Write8(c.tima)
	s.Write8(c.tma)
	s.Write8(c.tac)
	s.WriteBool(c.enabled)
	s.Write8(c.freqSel)
	s.WriteBool(c.lastEdge)
	s.WriteBool(c.reloadCycle)
	s.Write8(uint8(c.reloadCountdown))
	s.WriteBool(c.reloadCancel)
}

func (c *Controller) Load(s *types.State) {
	c.div = s.Read16()
	c.tima = s.Read8()
	c.tma = s.Read8()
	c.tac = s.Read8()
	c.enabled = s.ReadBool()
	c.freqSel = s.Read8()
	c.lastEdge = s.ReadBool()
	c.reloadCycle = s.ReadBool()
	c.reloadCountdown = int(s.Read8())
	c.reloadCancel = s.ReadBool()
}
