package ppu

import "github.com/haldane-systems/gbcore/internal/types"

// HazardKind distinguishes the three DMG OAM-bug corruption shapes,
// which vary by how the CPU touched the 0xFE00-0xFEFF region while
// mode 2 held OAM locked.
type HazardKind uint8

const (
	HazardWrite HazardKind = iota
	HazardRead
	HazardReadWrite
)

// OAMBugRow returns the row the corruption rule should target, based
// on the PPU's internal mode-2 scan position, and whether a hazard
// applies at all right now.
func (p *PPU) OAMBugRow() (row uint8, ok bool) {
	if p.model == types.ModelCGB {
		return 0, false
	}
	if !p.lcdEnabled() || p.mode() != OAMScan || p.cycle < 4 {
		return 0, false
	}
	row = uint8((p.cycle - 4) / 4)
	return row, row > 0 && row < 20
}

// ApplyOAMBugHazard corrupts OAM per the documented bitwise rule for
// kind, at the given row. Rows are 8-byte groups (two sprites, four
// 16-bit words); word 0 and word 2 are the "first" and "third" words
// referenced by the rule.
func (p *PPU) ApplyOAMBugHazard(kind HazardKind, row uint8) {
	switch kind {
	case HazardWrite:
		p.hazardWrite(row)
	case HazardRead:
		p.hazardRead(row)
	case HazardReadWrite:
		if row > 3 && row < 19 {
			p.hazardReadWrite(row)
		}
	}
}

func (p *PPU) word(row, idx uint8) uint16 {
	base := int(row)*8 + int(idx)*2
	return uint16(p.oam.data[base])<<8 | uint16(p.oam.data[base+1])
}

func (p *PPU) setWord(row, idx uint8, v uint16) {
	base := int(row)*8 + int(idx)*2
	p.oam.data[base] = uint8(v >> 8)
	p.oam.data[base+1] = uint8(v)
}

func (p *PPU) hazardWrite(row uint8) {
	if row == 0 {
		return
	}
	a := p.word(row, 0)
	b := p.word(row-1, 0)
	c := p.word(row-1, 2)
	p.setWord(row, 0, ((a^c)&(b^c))^c)
	for idx := uint8(1); idx < 4; idx++ {
		p.setWord(row, idx, p.word(row-1, idx))
	}
}

func (p *PPU) hazardRead(row uint8) {
	if row == 0 {
		return
	}
	a := p.word(row, 0)
	b := p.word(row-1, 0)
	c := p.word(row-1, 2)
	p.setWord(row, 0, b|(a&c))
	for idx := uint8(1); idx < 4; idx++ {
		p.setWord(row, idx, p.word(row-1, idx))
	}
}

func (p *PPU) hazardReadWrite(row uint8) {
	a := p.word(row-2, 0)
	b := p.word(row-1, 0)
	c := p.word(row, 0)
	d := p.word(row-1, 2)
	newPrev := (b & (a | c | d)) | (a & c & d)
	p.setWord(row-1, 0, newPrev)
	for idx := uint8(1); idx < 4; idx++ {
		v := p.word(row-1, idx)
		p.setWord(row, idx, v)
		p.setWord(row-2, idx, v)
	}
	p.setWord(row, 0, p.word(row-1, 0))
	p.hazardRead(row)
}
