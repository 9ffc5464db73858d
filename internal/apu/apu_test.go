package apu

import (
	"testing"

	"github.com/haldane-systems/gbcore/internal/types"
	"github.com/stretchr/testify/assert"
)

func powerOn(a *APU) { a.Write(0xFF26, 0x80) }

func TestPowerOffSilencesAndResetsChannelRegisters(t *testing.T) {
	a := New()
	powerOn(a)
	a.Write(0xFF11, 0x3F) // duty + length load on channel 1
	a.Write(0xFF26, 0x00) // power off

	assert.Equal(t, uint8(0x00), a.ch1.duty)
	assert.Equal(t, uint8(0x00), a.nr50)
}

func TestWritesDroppedWhilePoweredOff(t *testing.T) {
	a := New()
	a.Write(0xFF11, 0xFF) // powered off by default
	assert.Equal(t, uint8(0x00), a.ch1.duty)
}

func TestWaveRAMWritableRegardlessOfPower(t *testing.T) {
	a := New()
	a.Write(0xFF30, 0xAB)
	assert.Equal(t, uint8(0xAB), a.Read(0xFF30))
}

func TestNR52ReportsChannelEnabledBits(t *testing.T) {
	a := New()
	powerOn(a)
	a.Write(0xFF12, 0xF0) // max volume, increasing -> DAC enabled
	a.Write(0xFF14, 0x80) // trigger channel 1

	assert.Equal(t, uint8(0x01), a.readNR52()&0x01)
}

func TestPulseTriggerWithZeroLengthReloadsToMax(t *testing.T) {
	a := New()
	powerOn(a)
	a.Write(0xFF12, 0xF0) // DAC enabled
	a.Write(0xFF14, 0x80) // trigger
	assert.Equal(t, uint16(64), a.ch1.length.counter)
}

func TestLengthCounterDisablesChannelAtZero(t *testing.T) {
	a := New()
	powerOn(a)
	a.Write(0xFF12, 0xF0)
	a.Write(0xFF11, 0x3F) // length load = 63 -> counter = 1
	a.Write(0xFF14, 0xC0) // trigger + length enable

	a.stepSequencer() // phase 0: length tick
	assert.False(t, a.ch1.enabled)
}

func TestSweepOverflowDisablesChannelOnTrigger(t *testing.T) {
	a := New()
	powerOn(a)
	a.Write(0xFF12, 0xF0)
	a.Write(0xFF10, 0x01) // shift=1, increasing sweep
	a.Write(0xFF13, 0xFF)
	a.Write(0xFF14, 0x87) // high freq bits set, trigger
	assert.False(t, a.ch1.enabled)
}

func TestTickEmitsSamplesAtConfiguredPeriod(t *testing.T) {
	a := New()
	powerOn(a)
	for i := 0; i < int(a.samplePeriod)+1; i++ {
		a.Tick(0, false)
	}
	assert.NotEmpty(t, a.AudioBuffer())
}

func TestAudioBufferDrainsOnRead(t *testing.T) {
	a := New()
	powerOn(a)
	for i := 0; i < int(a.samplePeriod)+1; i++ {
		a.Tick(0, false)
	}
	first := a.AudioBuffer()
	assert.NotEmpty(t, first)
	assert.Empty(t, a.AudioBuffer())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a := New()
	powerOn(a)
	a.Write(0xFF12, 0xF0)
	a.Write(0xFF14, 0x80)
	a.Write(0xFF24, 0x77)

	s := types.NewState()
	a.Save(s)

	a2 := New()
	a2.Load(types.StateFromBytes(s.Bytes()))

	assert.Equal(t, a.nr50, a2.nr50)
	assert.Equal(t, a.powered, a2.powered)
	assert.Equal(t, a.ch1.enabled, a2.ch1.enabled)
	assert.Equal(t, a.ch1.frequency, a2.ch1.frequency)
}
