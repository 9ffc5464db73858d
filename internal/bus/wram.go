package bus

import "github.com/haldane-systems/gbcore/internal/types"

// wram is the 32 KiB work RAM block. On CGB, 0xD000-0xDFFF selects
// one of banks 1-7 via SVBK; bank 0 is permanently mapped at
// 0xC000-0xCFFF.
type wram struct {
	banks [8][4096]byte
	bank  uint8 // 1..7, CGB only
}

func newWRAM() *wram { return &wram{bank: 1} }

func (w *wram) readLow(addr uint16) uint8  { return w.banks[0][addr&0x0FFF] }
func (w *wram) writeLow(addr uint16, v uint8) { w.banks[0][addr&0x0FFF] = v }

func (w *wram) readHigh(addr uint16) uint8 { return w.banks[w.bank][addr&0x0FFF] }
func (w *wram) writeHigh(addr uint16, v uint8) { w.banks[w.bank][addr&0x0FFF] = v }

func (w *wram) readSVBK() uint8 { return w.bank | 0xF8 }

func (w *wram) writeSVBK(v uint8) {
	w.bank = v & 0x07
	if w.bank == 0 {
		w.bank = 1
	}
}

func (w *wram) save(s *types.State) {
	for _, bank := range w.banks {
		s.WriteData(bank[:])
	}
	s.Write8(w.bank)
}

func (w *wram) load(s *types.State) {
	for i := range w.banks {
		s.ReadData(w.banks[i][:])
	}
	w.bank = s.Read8()
}
