package apu

import "github.com/haldane-systems/gbcore/internal/types"

var dutyTable = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1}, // 12.5%
	{1, 0, 0, 0, 0, 0, 0, 1}, // 25%
	{1, 0, 0, 0, 0, 1, 1, 1}, // 50%
	{0, 1, 1, 1, 1, 1, 1, 0}, // 75%
}

// pulseChannel implements square-wave channels 1 and 2. Channel 1
// additionally carries the frequency-sweep unit; channel 2 leaves
// hasSweep false and sweep* fields unused.
type pulseChannel struct {
	enabled bool

	length   lengthCounter
	envelope envelope

	duty    uint8
	dutyPos uint8

	frequency uint16
	freqTimer uint16

	hasSweep       bool
	sweepEnabled   bool
	sweepPeriod    uint8
	sweepTimer     uint8
	sweepDecrease  bool
	sweepShift     uint8
	sweepShadow    uint16
}

func newPulseChannel(hasSweep bool) *pulseChannel {
	return &pulseChannel{length: lengthCounter{max: 64}, hasSweep: hasSweep}
}

func (p *pulseChannel) writeNRx1(v uint8) {
	p.duty = v >> 6
	p.length.writeReload(uint16(v & 0x3F))
}

func (p *pulseChannel) readNRx1() uint8 { return p.duty<<6 | 0x3F }

func (p *pulseChannel) writeFreqLo(v uint8) {
	p.frequency = p.frequency&0x700 | uint16(v)
}

func (p *pulseChannel) writeFreqHi(v uint8) {
	p.frequency = p.frequency&0xFF | uint16(v&0x07)<<8
	p.length.enabled = v&0x40 != 0
	if v&0x80 != 0 {
		p.trigger()
	}
}

func (p *pulseChannel) readFreqHi() uint8 {
	v := uint8(0xBF)
	if p.length.enabled {
		v |= 0x40
	}
	return v
}

func (p *pulseChannel) writeSweep(v uint8) {
	p.sweepPeriod = (v >> 4) & 0x07
	p.sweepDecrease = v&0x08 != 0
	p.sweepShift = v & 0x07
}

func (p *pulseChannel) readSweep() uint8 {
	v := p.sweepPeriod << 4
	if p.sweepDecrease {
		v |= 0x08
	}
	return 0x80 | v | p.sweepShift
}

func (p *pulseChannel) trigger() {
	p.enabled = p.envelope.dacEnabled()
	p.freqTimer = (2048 - p.frequency) * 4
	p.envelope.trigger()
	p.length.trigger()

	if p.hasSweep {
		p.sweepShadow = p.frequency
		p.sweepTimer = p.sweepPeriod
		if p.sweepTimer == 0 {
			p.sweepTimer = 8
		}
		p.sweepEnabled = p.sweepPeriod != 0 || p.sweepShift != 0
		if p.sweepShift != 0 {
			if _, overflow := p.sweepCalc(); overflow {
				p.enabled = false
			}
		}
	}
}

// sweepCalc computes freq +/- (freq >> shift) and reports whether it
// overflows 11 bits.
func (p *pulseChannel) sweepCalc() (uint16, bool) {
	delta := p.sweepShadow >> p.sweepShift
	var newFreq uint16
	if p.sweepDecrease {
		newFreq = p.sweepShadow - delta
	} else {
		newFreq = p.sweepShadow + delta
	}
	return newFreq, newFreq > 2047
}

// sweepTick runs on frame-sequencer phases 2,6 (128 Hz), for channel 1
// only.
func (p *pulseChannel) sweepTick() {
	if !p.hasSweep || !p.sweepEnabled {
		return
	}
	if p.sweepTimer > 0 {
		p.sweepTimer--
	}
	if p.sweepTimer != 0 {
		return
	}
	p.sweepTimer = p.sweepPeriod
	if p.sweepTimer == 0 {
		p.sweepTimer = 8
	}
	if p.sweepPeriod == 0 {
		return
	}
	newFreq, overflow := p.sweepCalc()
	if overflow {
		p.enabled = false
		return
	}
	if p.sweepShift > 0 {
		p.sweepShadow = newFreq
		p.frequency = newFreq
		if _, overflow := p.sweepCalc(); overflow {
			p.enabled = false
		}
	}
}

// tick runs once per T-cycle.
func (p *pulseChannel) tick() {
	if p.freqTimer == 0 {
		p.freqTimer = (2048 - p.frequency) * 4
	}
	p.freqTimer--
	if p.freqTimer == 0 {
		p.dutyPos = (p.dutyPos + 1) % 8
	}
}

func (p *pulseChannel) lengthTick() {
	if p.length.tick() {
		p.enabled = false
	}
}

func (p *pulseChannel) output() uint8 {
	if !p.enabled || !p.envelope.dacEnabled() {
		return 0
	}
	return dutyTable[p.duty][p.dutyPos] * p.envelope.volume
}

func (p *pulseChannel) save(s *types.State) {
	s.WriteBool(p.enabled)
	p.length.save(s)
	p.envelope.save(s)
	s.Write8(p.duty)
	s.Write8(p.dutyPos)
	s.Write16(p.frequency)
	s.Write16(p.freqTimer)
	if p.hasSweep {
		s.WriteBool(p.sweepEnabled)
		s.Write8(p.sweepPeriod)
		s.Write8(p.sweepTimer)
		s.WriteBool(p.sweepDecrease)
		s.Write8(p.sweepShift)
		s.Write16(p.sweepShadow)
	}
}

func (p *pulseChannel) load(s *types.State) {
	p.enabled = s.ReadBool()
	p.length.load(s)
	p.envelope.load(s)
	p.duty = s.Read8()
	p.dutyPos = s.Read8()
	p.frequency = s.Read16()
	p.freqTimer = s.Read16()
	if p.hasSweep {
		p.sweepEnabled = s.ReadBool()
		p.sweepPeriod = s.Read8()
		p.sweepTimer = s.Read8()
		p.sweepDecrease = s.ReadBool()
		p.sweepShift = s.Read8()
		p.sweepShadow = s.Read16()
	}
}
