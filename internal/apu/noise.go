package apu

import "github.com/haldane-systems/gbcore/internal/types"

var noiseDivisor = [8]uint16{8, 16, 32, 48, 64, 80, 96, 112}

// noiseChannel generates pseudo-random output from a 15-bit LFSR.
type noiseChannel struct {
	enabled bool

	length   lengthCounter
	envelope envelope

	clockShift  uint8
	widthMode   bool // true = 7-bit LFSR
	divisorCode uint8

	lfsr      uint16
	freqTimer uint32
}

func newNoiseChannel() *noiseChannel {
	return &noiseChannel{length: lengthCounter{max: 64}}
}

func (n *noiseChannel) writeNR41(v uint8) { n.length.writeReload(uint16(v & 0x3F)) }

func (n *noiseChannel) writeNR43(v uint8) {
	n.clockShift = v >> 4
	n.widthMode = v&0x08 != 0
	n.divisorCode = v & 0x07
}

func (n *noiseChannel) readNR43() uint8 {
	v := n.clockShift << 4
	if n.widthMode {
		v |= 0x08
	}
	return v | n.divisorCode
}

func (n *noiseChannel) writeNR44(v uint8) {
	n.length.enabled = v&0x40 != 0
	if v&0x80 != 0 {
		n.trigger()
	}
}

func (n *noiseChannel) readNR44() uint8 {
	v := uint8(0xBF)
	if n.length.enabled {
		v |= 0x40
	}
	return v
}

func (n *noiseChannel) trigger() {
	n.enabled = n.envelope.dacEnabled()
	n.lfsr = 0x7FFF
	n.freqTimer = uint32(noiseDivisor[n.divisorCode]) << n.clockShift
	n.envelope.trigger()
	n.length.trigger()
}

func (n *noiseChannel) tick() {
	if n.freqTimer == 0 {
		n.freqTimer = uint32(noiseDivisor[n.divisorCode]) << n.clockShift
	}
	n.freqTimer--
	if n.freqTimer == 0 {
		bit := (n.lfsr ^ (n.lfsr >> 1)) & 0x01
		n.lfsr >>= 1
		n.lfsr |= bit << 14
		if n.widthMode {
			n.lfsr &^= 1 << 6
			n.lfsr |= bit << 6
		}
	}
}

func (n *noiseChannel) lengthTick() {
	if n.length.tick() {
		n.enabled = false
	}
}

func (n *noiseChannel) output() uint8 {
	if !n.enabled || !n.envelope.dacEnabled() {
		return 0
	}
	bit0 := n.lfsr & 0x01
	return uint8(1-bit0) * n.envelope.volume
}

func (n *noiseChannel) save(s *types.State) {
	s.WriteBool(n.enabled)
	n.length.save(s)
	n.envelope.save(s)
	s.Write8(n.clockShift)
	s.WriteBool(n.widthMode)
	s.Write8(n.divisorCode)
	s.Write16(n.lfsr)
	s.Write32(n.freqTimer)
}

func (n *noiseChannel) load(s *types.State) {
	n.enabled = s.ReadBool()
	n.length.load(s)
	n.envelope.load(s)
	n.clockShift = s.Read8()
	n.widthMode = s.ReadBool()
	n.divisorCode = s.Read8()
	n.lfsr = s.Read16()
	n.freqTimer = s.Read32()
}
