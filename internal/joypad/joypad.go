// Package joypad tracks button state and the P1 selector matrix, and
// raises the Joypad interrupt on a falling edge of any selected line.
package joypad

import (
	"github.com/haldane-systems/gbcore/internal/interrupts"
	"github.com/haldane-systems/gbcore/internal/types"
)

// Button identifies one of the eight physical buttons.
type Button uint8

const (
	A Button = iota
	B
	Select
	Start
	Right
	Left
	Up
	Down
)

// State holds which buttons are currently held and the two selector
// lines software uses to pick direction keys vs action keys.
type State struct {
	pressed        uint8 // bit per Button, 1 = held
	selectDirs     bool  // P14 written low
	selectButtons  bool  // P15 written low

	irq interrupts.Sink
}

// New returns a State with no buttons held and both selector lines
// released, so P1 reads 0xFF.
func New(irq interrupts.Sink) *State {
	return &State{irq: irq}
}

// directionMask and buttonMask pick the 4 bits of `pressed` relevant
// to each selector line.
const (
	directionMask = 1<<Right | 1<<Left | 1<<Up | 1<<Down
	buttonMask    = 1<<A | 1<<B | 1<<Select | 1<<Start
)

// Read returns the P1 register value: the selector bits as last
// written, and the inverted selected nibble (0 = pressed) in the low
// nibble. If neither line is selected, the low nibble reads as all 1s.
func (s *State) Read() uint8 {
	v := uint8(0xC0)
	if !s.selectDirs {
		v |= 1 << 4
	}
	if !s.selectButtons {
		v |= 1 << 5
	}

	nibble := uint8(0x0F)
	if s.selectDirs {
		nibble &^= s.directionNibble() & 0x0F
	}
	if s.selectButtons {
		nibble &^= s.buttonNibble() & 0x0F
	}
	return v | nibble
}

func (s *State) directionNibble() uint8 {
	n := uint8(0)
	if s.pressed&(1<<Right) != 0 {
		n |= 1 << 0
	}
	if s.pressed&(1<<Left) != 0 {
		n |= 1 << 1
	}
	if s.pressed&(1<<Up) != 0 {
		n |= 1 << 2
	}
	if s.pressed&(1<<Down) != 0 {
		n |= 1 << 3
	}
	return n
}

func (s *State) buttonNibble() uint8 {
	n := uint8(0)
	if s.pressed&(1<<A) != 0 {
		n |= 1 << 0
	}
	if s.pressed&(1<<B) != 0 {
		n |= 1 << 1
	}
	if s.pressed&(1<<Select) != 0 {
		n |= 1 << 2
	}
	if s.pressed&(1<<Start) != 0 {
		n |= 1 << 3
	}
	return n
}

// Write latches the two selector lines from bits 4-5.
func (s *State) Write(v uint8) {
	s.selectDirs = v&(1<<4) == 0
	s.selectButtons = v&(1<<5) == 0
}

// Press marks a button held, requesting the Joypad interrupt if this
// is a falling (0->1, i.e. newly pressed) transition on a currently
// selected line.
func (s *State) Press(b Button) {
	before := s.Read() & 0x0F
	s.pressed |= 1 << b
	after := s.Read() & 0x0F
	// any of the low 4 bits transitioning high->low is the falling
	// edge the hardware watches for.
	if before&^after != 0 {
		s.irq.Request(interrupts.Joypad)
	}
}

// Release marks a button no longer held.
func (s *State) Release(b Button) {
	s.pressed &^= 1 << b
}

// AnyPressed reports whether any button is currently held, which is
// what wakes the CPU from STOP.
func (s *State) AnyPressed() bool { return s.pressed != 0 }

var _ types.Stater = (*State)(nil)

func (s *State) Save(st *types.State) {
	st.Write8(s.pressed)
	st.WriteBool(s.selectDirs)
	st.WriteBool(s.selectButtons)
}

func (s *State) Load(st *types.State) {
	s.pressed = st.Read8()
	s.selectDirs = st.ReadBool()
	s.selectButtons = st.ReadBool()
}
