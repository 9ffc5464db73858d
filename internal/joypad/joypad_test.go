package joypad

import (
	"testing"

	"github.com/haldane-systems/gbcore/internal/interrupts"
	"github.com/haldane-systems/gbcore/internal/types"
	"github.com/stretchr/testify/assert"
)

type fakeSink struct {
	requested []interrupts.Kind
}

func (f *fakeSink) Request(k interrupts.Kind) { f.requested = append(f.requested, k) }

func TestReadDefaultsToAllReleased(t *testing.T) {
	s := New(&fakeSink{})
	assert.Equal(t, uint8(0xFF), s.Read())
}

func TestPressRequestsInterruptOnSelectedLine(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink)
	s.Write(0x20) // select direction line (bit 4 low)
	s.Press(Down)
	assert.Contains(t, sink.requested, interrupts.Joypad)
}

func TestPressDoesNotRequestInterruptOnUnselectedLine(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink)
	s.Write(0x10) // select button line only
	s.Press(Down) // a direction button, not selected
	assert.Empty(t, sink.requested)
}

func TestReleaseClearsBit(t *testing.T) {
	s := New(&fakeSink{})
	s.Write(0x20)
	s.Press(Up)
	assert.True(t, s.AnyPressed())
	s.Release(Up)
	assert.False(t, s.AnyPressed())
}

func TestDirectionAndButtonNibblesAreIndependent(t *testing.T) {
	s := New(&fakeSink{})
	s.Press(A)    // bit 0 of the button nibble
	s.Press(Down) // bit 3 of the direction nibble

	s.Write(0x10) // select buttons
	buttonRead := s.Read() & 0x0F

	s.Write(0x20) // select directions
	directionRead := s.Read() & 0x0F

	assert.NotEqual(t, buttonRead, directionRead)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(&fakeSink{})
	s.Press(Start)
	s.Write(0x10)

	st := types.NewState()
	s.Save(st)

	s2 := New(&fakeSink{})
	s2.Load(types.StateFromBytes(st.Bytes()))

	assert.Equal(t, s.pressed, s2.pressed)
	assert.Equal(t, s.selectButtons, s2.selectButtons)
}
