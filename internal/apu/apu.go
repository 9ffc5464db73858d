// Package apu implements the Game Boy's four-channel audio processing
// unit: two pulse channels (one with frequency sweep), a 32-sample
// wave channel, an LFSR noise channel, the 512 Hz frame sequencer that
// drives their length/envelope/sweep units, and the stereo mixer that
// samples the result at 44.1 kHz.
package apu

import "github.com/haldane-systems/gbcore/internal/types"

const sampleRate = 44100
const cpuHz = 4194304

// APU owns all four channels and the master mixing registers.
type APU struct {
	ch1 *pulseChannel
	ch2 *pulseChannel
	ch3 *waveChannel
	ch4 *noiseChannel

	nr50 uint8 // master volume + VIN
	nr51 uint8 // channel panning
	powered bool

	seqStep  uint8
	lastBit  bool // previous value of the div bit driving the sequencer

	sampleTimer  float64
	samplePeriod float64
	samples      []float32
}

// New returns an APU that is powered off with all channels silenced.
// Nothing writes post-boot APU register values during construction.
func New() *APU {
	return &APU{
		ch1:          newPulseChannel(true),
		ch2:          newPulseChannel(false),
		ch3:          newWaveChannel(),
		ch4:          newNoiseChannel(),
		samplePeriod: float64(cpuHz) / float64(sampleRate),
	}
}

// Read returns the value CPU-visible at the given I/O address.
func (a *APU) Read(addr uint16) uint8 {
	switch addr {
	case 0xFF10:
		return a.ch1.readSweep()
	case 0xFF11:
		return a.ch1.readNRx1()
	case 0xFF12:
		return a.ch1.envelope.readNRx2()
	case 0xFF14:
		return a.ch1.readFreqHi()
	case 0xFF16:
		return a.ch2.readNRx1()
	case 0xFF17:
		return a.ch2.envelope.readNRx2()
	case 0xFF19:
		return a.ch2.readFreqHi()
	case 0xFF1A:
		return a.ch3.readNR30()
	case 0xFF1C:
		return a.ch3.readNR32()
	case 0xFF1E:
		return a.ch3.readFreqHi()
	case 0xFF21:
		return a.ch4.envelope.readNRx2()
	case 0xFF22:
		return a.ch4.readNR43()
	case 0xFF23:
		return a.ch4.readNR44()
	case 0xFF24:
		return a.nr50
	case 0xFF25:
		return a.nr51
	case 0xFF26:
		return a.readNR52()
	case 0xFF76:
		return a.ch1.output()<<4 | a.ch2.output()
	case 0xFF77:
		return a.ch3.output()<<4 | a.ch4.output()
	}
	if addr >= 0xFF30 && addr <= 0xFF3F {
		return a.ch3.readWaveRAM(addr)
	}
	return 0xFF
}

// Write handles a CPU-visible write. Writes other than to NR52 and
// wave RAM are dropped while the APU is powered off, matching real
// hardware.
func (a *APU) Write(addr uint16, v uint8) {
	if addr >= 0xFF30 && addr <= 0xFF3F {
		a.ch3.writeWaveRAM(addr, v)
		return
	}
	if addr == 0xFF26 {
		a.writeNR52(v)
		return
	}
	if !a.powered {
		return
	}
	switch addr {
	case 0xFF10:
		a.ch1.writeSweep(v)
	case 0xFF11:
		a.ch1.writeNRx1(v)
	case 0xFF12:
		a.ch1.envelope.writeNRx2(v)
	case 0xFF13:
		a.ch1.writeFreqLo(v)
	case 0xFF14:
		a.ch1.writeFreqHi(v)
	case 0xFF16:
		a.ch2.writeNRx1(v)
	case 0xFF17:
		a.ch2.envelope.writeNRx2(v)
	case 0xFF18:
		a.ch2.writeFreqLo(v)
	case 0xFF19:
		a.ch2.writeFreqHi(v)
	case 0xFF1A:
		a.ch3.writeNR30(v)
	case 0xFF1B:
		a.ch3.writeNR31(v)
	case 0xFF1C:
		a.ch3.writeNR32(v)
	case 0xFF1D:
		a.ch3.writeFreqLo(v)
	case 0xFF1E:
		a.ch3.writeFreqHi(v)
	case 0xFF20:
		a.ch4.writeNR41(v)
	case 0xFF21:
		a.ch4.envelope.writeNRx2(v)
	case 0xFF22:
		a.ch4.writeNR43(v)
	case 0xFF23:
		a.ch4.writeNR44(v)
	case 0xFF24:
		a.nr50 = v
	case 0xFF25:
		a.nr51 = v
	}
}

func (a *APU) readNR52() uint8 {
	v := uint8(0x70)
	if a.powered {
		v |= 0x80
	}
	if a.ch1.enabled {
		v |= 0x01
	}
	if a.ch2.enabled {
		v |= 0x02
	}
	if a.ch3.enabled {
		v |= 0x04
	}
	if a.ch4.enabled {
		v |= 0x08
	}
	return v
}

func (a *APU) writeNR52(v uint8) {
	wasPowered := a.powered
	a.powered = v&0x80 != 0
	if wasPowered && !a.powered {
		*a.ch1 = *newPulseChannel(true)
		*a.ch2 = *newPulseChannel(false)
		pattern := a.ch3.pattern
		*a.ch3 = *newWaveChannel()
		a.ch3.pattern = pattern
		*a.ch4 = *newNoiseChannel()
		a.nr50, a.nr51 = 0, 0
	}
}

// Tick advances all four channels and the frame sequencer by one base
// T-cycle, and emits a stereo sample pair whenever enough T-cycles
// have elapsed for the 44.1 kHz output rate. div is the timer's
// 16-bit divider value as it stood *before* this cycle's timer tick,
// per the bus's fixed peripheral ordering. The sequencer steps on a
// falling edge of DIV register bit 4 (divider bit 12), or DIV bit 5
// (divider bit 13) in double speed.
func (a *APU) Tick(div uint16, doubleSpeed bool) {
	bit := uint8(12)
	if doubleSpeed {
		bit = 13
	}
	current := div&(1<<bit) != 0
	if a.lastBit && !current {
		a.stepSequencer()
	}
	a.lastBit = current

	if a.powered {
		a.ch1.tick()
		a.ch2.tick()
		a.ch3.tick()
		a.ch4.tick()
	}

	a.sampleTimer--
	if a.sampleTimer <= 0 {
		a.sampleTimer += a.samplePeriod
		a.emitSample()
	}
}

func (a *APU) stepSequencer() {
	switch a.seqStep {
	case 0, 2, 4, 6:
		a.ch1.lengthTick()
		a.ch2.lengthTick()
		a.ch3.lengthTick()
		a.ch4.lengthTick()
	}
	switch a.seqStep {
	case 2, 6:
		a.ch1.sweepTick()
	}
	if a.seqStep == 7 {
		a.ch1.envelope.tick()
		a.ch2.envelope.tick()
		a.ch4.envelope.tick()
	}
	a.seqStep = (a.seqStep + 1) % 8
}

func (a *APU) emitSample() {
	if !a.powered {
		a.samples = append(a.samples, 0, 0)
		return
	}
	c1, c2, c3, c4 := a.ch1.output(), a.ch2.output(), a.ch3.output(), a.ch4.output()

	var left, right float32
	if a.nr51&0x10 != 0 {
		left += float32(c1)
	}
	if a.nr51&0x20 != 0 {
		left += float32(c2)
	}
	if a.nr51&0x40 != 0 {
		left += float32(c3)
	}
	if a.nr51&0x80 != 0 {
		left += float32(c4)
	}
	if a.nr51&0x01 != 0 {
		right += float32(c1)
	}
	if a.nr51&0x02 != 0 {
		right += float32(c2)
	}
	if a.nr51&0x04 != 0 {
		right += float32(c3)
	}
	if a.nr51&0x08 != 0 {
		right += float32(c4)
	}

	leftVol := float32((a.nr50>>4)&0x07+1) / 8
	rightVol := float32(a.nr50&0x07+1) / 8

	// four channels, each in [0,15]; divide by 4*15 to land in [0,1].
	// No centering is applied.
	const norm = 1.0 / (4 * 15)
	a.samples = append(a.samples, left*leftVol*norm, right*rightVol*norm)
}

// AudioBuffer returns and drains the accumulated stereo sample pairs.
func (a *APU) AudioBuffer() []float32 {
	out := a.samples
	a.samples = nil
	return out
}

var _ types.Stater = (*APU)(nil)

func (a *APU) Save(s *types.State) {
	s.Write8(a.nr50)
	s.Write8(a.nr51)
	s.WriteBool(a.powered)
	s.Write8(a.seqStep)
	s.WriteBool(a.lastBit)
	a.ch1.save(s)
	a.ch2.save(s)
	a.ch3.save(s)
	a.ch4.save(s)
}

func (a *APU) Load(s *types.State) {
	a.nr50 = s.Read8()
	a.nr51 = s.Read8()
	a.powered = s.ReadBool()
	a.seqStep = s.Read8()
	a.lastBit = s.ReadBool()
	a.ch1.load(s)
	a.ch2.load(s)
	a.ch3.load(s)
	a.ch4.load(s)
}
