package timer

import (
	"testing"

	"github.com/haldane-systems/gbcore/internal/interrupts"
	"github.com/haldane-systems/gbcore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	requested []interrupts.Kind
}

func (f *fakeSink) Request(k interrupts.Kind) { f.requested = append(f.requested, k) }

func TestWriteDIVResetsDivider(t *testing.T) {
	c := New(&fakeSink{})
	c.WriteTAC(0x05) // enabled, freqSel 1 -> bit 3
	for i := 0; i < 100; i++ {
		c.advance(4)
	}
	c.WriteDIV()
	assert.Equal(t, uint8(0), c.ReadDIV())
}

func TestWriteDIVFallingEdgeIncrementsTIMA(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	c.WriteTAC(0x04) // enabled, freqSel 0 -> bit 9
	c.div = 1 << 9   // selected bit currently set
	c.lastEdge = true
	before := c.ReadTIMA()
	c.WriteDIV()
	assert.Equal(t, before+1, c.ReadTIMA())
}

func TestTIMAOverflowReloadsAfterOneMachineCycleAndRequestsInterrupt(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	c.WriteTAC(0x05) // enabled, freqSel 1 -> bit 3
	c.WriteTMA(0x42)
	c.tima = 0xFF

	c.incrementTIMA()
	require.True(t, c.reloadCycle)
	assert.Equal(t, uint8(0), c.ReadTIMA())

	c.advance(4)
	assert.False(t, c.reloadCycle)
	// the reload writes 0x42; the same T-cycle takes the divider from
	// 0xABCF to 0xABD0, a falling edge on bit 3, so TIMA then increments
	assert.Equal(t, uint8(0x43), c.ReadTIMA())
	assert.Contains(t, sink.requested, interrupts.Timer)
}

func TestTIMAWriteDuringReloadWindowCancelsInterrupt(t *testing.T) {
	sink := &fakeSink{}
	c := New(sink)
	c.WriteTMA(0x42)
	c.tima = 0xFF
	c.incrementTIMA()
	require.True(t, c.reloadCycle)

	c.WriteTIMA(0x99)
	c.advance(4)

	assert.Equal(t, uint8(0x99), c.ReadTIMA())
	assert.Empty(t, sink.requested)
}

func TestTMAWriteDuringReloadWindowAppliesToTIMA(t *testing.T) {
	c := New(&fakeSink{})
	c.tima = 0xFF
	c.incrementTIMA()
	require.True(t, c.reloadCycle)

	c.WriteTMA(0x7A)
	assert.Equal(t, uint8(0x7A), c.ReadTIMA())
}

func TestReadTACAlwaysReadsUpperBitsHigh(t *testing.T) {
	c := New(&fakeSink{})
	c.WriteTAC(0x00)
	assert.Equal(t, uint8(0xF8), c.ReadTAC())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := New(&fakeSink{})
	c.WriteTAC(0x07)
	c.WriteTMA(0x11)
	c.advance(37)

	s := types.NewState()
	c.Save(s)

	c2 := New(&fakeSink{})
	c2.Load(types.StateFromBytes(s.Bytes()))

	assert.Equal(t, c.div, c2.div)
	assert.Equal(t, c.tima, c2.tima)
	assert.Equal(t, c.tma, c2.tma)
	assert.Equal(t, c.tac, c2.tac)
}
