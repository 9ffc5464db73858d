package bus

import "github.com/haldane-systems/gbcore/internal/types"

// hdma implements the CGB's VRAM DMA engine: a general-purpose mode
// that blocks the CPU until the whole transfer completes, and an
// H-blank mode that copies one 16-byte chunk on each mode-0 entry.
type hdma struct {
	source, destination uint16
	length               uint8 // remaining 16-byte chunks, 0 means idle
	hblankMode           bool
	lastPPUMode          int // -1 until first observed
}

func newHDMA() *hdma { return &hdma{lastPPUMode: -1} }

func (h *hdma) writeHDMA1(v uint8) { h.source = h.source&0x00FF | uint16(v)<<8 }
func (h *hdma) writeHDMA2(v uint8) { h.source = h.source&0xFF00 | uint16(v&0xF0) }
func (h *hdma) writeHDMA3(v uint8) {
	h.destination = h.destination&0x00FF | uint16(v&0x1F)<<8 | 0x8000
}
func (h *hdma) writeHDMA4(v uint8) { h.destination = h.destination&0xFF00 | uint16(v&0xF0) }

func (h *hdma) readHDMA5() uint8 {
	if h.length == 0 {
		return 0xFF
	}
	return (h.length - 1) & 0x7F
}

// writeHDMA5 launches a transfer, or aborts an in-progress H-blank
// transfer if bit 7 is clear while one is active.
func (h *hdma) writeHDMA5(v uint8, b *Bus) {
	if h.length > 0 && h.hblankMode && v&0x80 == 0 {
		h.length = 0
		return
	}
	h.length = (v & 0x7F) + 1
	h.hblankMode = v&0x80 != 0
	if !h.hblankMode {
		h.runGeneralPurpose(b)
	}
}

func (h *hdma) runGeneralPurpose(b *Bus) {
	for h.length > 0 {
		h.copyChunk(b)
	}
}

// onPPUModeChange is polled once per base-rate T-cycle; it copies one
// chunk the instant H-blank is freshly entered.
func (h *hdma) onPPUModeChange(b *Bus, mode int) {
	if mode != h.lastPPUMode {
		if h.hblankMode && h.length > 0 && mode == 0 {
			h.copyChunk(b)
		}
		h.lastPPUMode = mode
	}
}

func (h *hdma) copyChunk(b *Bus) {
	for i := 0; i < 16; i++ {
		v := b.readForDMA(h.source)
		b.PPU.WriteVRAM(h.destination&0x1FFF, v)
		h.source++
		h.destination++
	}
	h.destination = h.destination&0x1FFF | 0x8000
	h.length--
}

func (h *hdma) save(s *types.State) {
	s.Write16(h.source)
	s.Write16(h.destination)
	s.Write8(h.length)
	s.WriteBool(h.hblankMode)
	s.Write8(uint8(h.lastPPUMode + 1))
}

func (h *hdma) load(s *types.State) {
	h.source = s.Read16()
	h.destination = s.Read16()
	h.length = s.Read8()
	h.hblankMode = s.ReadBool()
	h.lastPPUMode = int(s.Read8()) - 1
}
