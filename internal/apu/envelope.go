package apu

import "github.com/haldane-systems/gbcore/internal/types"

// envelope is the shared volume-envelope unit carried by three of the
// four channels (not the wave channel, which has its own fixed
// volume-shift code instead).
type envelope struct {
	initialVolume uint8
	increasing    bool
	period        uint8

	volume uint8
	timer  uint8
}

func (e *envelope) writeNRx2(v uint8) {
	e.initialVolume = v >> 4
	e.increasing = v&0x08 != 0
	e.period = v & 0x07
}

func (e *envelope) readNRx2() uint8 {
	v := e.initialVolume << 4
	if e.increasing {
		v |= 0x08
	}
	return v | e.period
}

// dacEnabled mirrors the hardware quirk that the DAC is enabled iff
// the upper 5 bits of NRx2 (initial volume + direction) are nonzero.
func (e *envelope) dacEnabled() bool {
	return e.initialVolume != 0 || e.increasing
}

func (e *envelope) trigger() {
	e.volume = e.initialVolume
	e.timer = e.period
}

// tick runs on frame-sequencer phase 7 (64 Hz).
func (e *envelope) tick() {
	if e.period == 0 {
		return
	}
	if e.timer > 0 {
		e.timer--
	}
	if e.timer == 0 {
		e.timer = e.period
		if e.increasing {
			if e.volume < 15 {
				e.volume++
			}
		} else if e.volume > 0 {
			e.volume--
		}
	}
}

func (e *envelope) save(s *types.State) {
	s.Write8(e.initialVolume)
	s.WriteBool(e.increasing)
	s.Write8(e.period)
	s.Write8(e.volume)
	s.Write8(e.timer)
}

func (e *envelope) load(s *types.State) {
	e.initialVolume = s.Read8()
	e.increasing = s.ReadBool()
	e.period = s.Read8()
	e.volume = s.Read8()
	e.timer = s.Read8()
}

// lengthCounter is the shared length unit; max is 64 for pulse/noise
// channels and 256 for the wave channel.
type lengthCounter struct {
	max     uint16
	counter uint16
	enabled bool
}

func (l *lengthCounter) writeReload(loaded uint16) {
	l.counter = l.max - loaded
}

func (l *lengthCounter) trigger() {
	if l.counter == 0 {
		l.counter = l.max
	}
}

// tick runs on frame-sequencer phases 0,2,4,6 (256 Hz). It returns
// true the instant the counter reaches zero, which mutes the channel.
func (l *lengthCounter) tick() bool {
	if l.enabled && l.counter > 0 {
		l.counter--
		return l.counter == 0
	}
	return false
}

func (l *lengthCounter) save(s *types.State) {
	s.Write16(l.counter)
	s.WriteBool(l.enabled)
}

func (l *lengthCounter) load(s *types.State) {
	l.counter = s.Read16()
	l.enabled = s.ReadBool()
}
