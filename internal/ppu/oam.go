package ppu

import "github.com/haldane-systems/gbcore/internal/types"

// spriteAttr mirrors one 4-byte OAM record.
type spriteAttr struct {
	y, x, tile, flags uint8
}

func (s spriteAttr) priority() bool  { return s.flags&0x80 != 0 } // true: BG colors 1-3 above sprite
func (s spriteAttr) flipY() bool     { return s.flags&0x40 != 0 }
func (s spriteAttr) flipX() bool     { return s.flags&0x20 != 0 }
func (s spriteAttr) dmgPalette() uint8 {
	if s.flags&0x10 != 0 {
		return 1
	}
	return 0
}
func (s spriteAttr) vramBank() uint8  { return (s.flags >> 3) & 0x01 }
func (s spriteAttr) cgbPalette() uint8 { return s.flags & 0x07 }

// oamEntry is a sprite selected for the current scanline, tagged with
// its original OAM index to resolve DMG priority ties.
type oamEntry struct {
	attr  spriteAttr
	index uint8
}

// oam owns the raw 160-byte object attribute table.
type oam struct {
	data [160]byte
}

func (o *oam) read(addr uint16) uint8  { return o.data[addr&0xFF] }
func (o *oam) write(addr uint16, v uint8) { o.data[addr&0xFF] = v }

func (o *oam) sprite(index uint8) spriteAttr {
	base := int(index) * 4
	return spriteAttr{
		y:     o.data[base],
		x:     o.data[base+1],
		tile:  o.data[base+2],
		flags: o.data[base+3],
	}
}

// scan selects up to 10 sprites visible on the given scanline, in OAM
// order, per the documented mode-2 behavior.
func (o *oam) scan(scanline uint8, tall bool) []oamEntry {
	height := uint8(8)
	if tall {
		height = 16
	}
	var out []oamEntry
	for i := uint8(0); i < 40; i++ {
		s := o.sprite(i)
		top := int(s.y) - 16
		if int(scanline) >= top && int(scanline) < top+int(height) {
			out = append(out, oamEntry{attr: s, index: i})
			if len(out) == 10 {
				break
			}
		}
	}
	return out
}

func (o *oam) save(s *types.State) { s.WriteData(o.data[:]) }
func (o *oam) load(s *types.State) { s.ReadData(o.data[:]) }
