package apu

import "github.com/haldane-systems/gbcore/internal/types"

var waveVolumeShift = [4]uint8{4, 0, 1, 2} // 4 == mute

// waveChannel plays back a 32-sample, 4-bit wave table.
type waveChannel struct {
	enabled    bool
	dacEnabled bool

	length     lengthCounter
	volumeCode uint8

	frequency uint16
	freqTimer uint16
	position  uint8 // 0..31

	pattern [16]byte // 32 packed 4-bit samples
}

func newWaveChannel() *waveChannel {
	return &waveChannel{length: lengthCounter{max: 256}}
}

func (w *waveChannel) writeNR30(v uint8) { w.dacEnabled = v&0x80 != 0 }
func (w *waveChannel) readNR30() uint8 {
	if w.dacEnabled {
		return 0xFF
	}
	return 0x7F
}

func (w *waveChannel) writeNR31(v uint8) { w.length.writeReload(uint16(v)) }

func (w *waveChannel) writeNR32(v uint8) { w.volumeCode = (v >> 5) & 0x03 }
func (w *waveChannel) readNR32() uint8   { return 0x9F | w.volumeCode<<5 }

func (w *waveChannel) writeFreqLo(v uint8) { w.frequency = w.frequency&0x700 | uint16(v) }
func (w *waveChannel) writeFreqHi(v uint8) {
	w.frequency = w.frequency&0xFF | uint16(v&0x07)<<8
	w.length.enabled = v&0x40 != 0
	if v&0x80 != 0 {
		w.trigger()
	}
}
func (w *waveChannel) readFreqHi() uint8 {
	v := uint8(0xBF)
	if w.length.enabled {
		v |= 0x40
	}
	return v
}

func (w *waveChannel) writeWaveRAM(addr uint16, v uint8) { w.pattern[addr&0x0F] = v }
func (w *waveChannel) readWaveRAM(addr uint16) uint8     { return w.pattern[addr&0x0F] }

func (w *waveChannel) trigger() {
	w.enabled = w.dacEnabled
	w.freqTimer = (2048 - w.frequency) * 2
	w.position = 0
	w.length.trigger()
}

func (w *waveChannel) tick() {
	if w.freqTimer == 0 {
		w.freqTimer = (2048 - w.frequency) * 2
	}
	w.freqTimer--
	if w.freqTimer == 0 {
		w.position = (w.position + 1) % 32
	}
}

func (w *waveChannel) lengthTick() {
	if w.length.tick() {
		w.enabled = false
	}
}

func (w *waveChannel) sample() uint8 {
	b := w.pattern[w.position/2]
	if w.position%2 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

func (w *waveChannel) output() uint8 {
	if !w.enabled || !w.dacEnabled {
		return 0
	}
	shift := waveVolumeShift[w.volumeCode]
	if shift == 4 {
		return 0
	}
	return w.sample() >> shift
}

func (w *waveChannel) save(s *types.State) {
	s.WriteBool(w.enabled)
	s.WriteBool(w.dacEnabled)
	w.length.save(s)
	s.Write8(w.volumeCode)
	s.Write16(w.frequency)
	s.Write16(w.freqTimer)
	s.Write8(w.position)
	s.WriteData(w.pattern[:])
}

func (w *waveChannel) load(s *types.State) {
	w.enabled = s.ReadBool()
	w.dacEnabled = s.ReadBool()
	w.length.load(s)
	w.volumeCode = s.Read8()
	w.frequency = s.Read16()
	w.freqTimer = s.Read16()
	w.position = s.Read8()
	s.ReadData(w.pattern[:])
}
