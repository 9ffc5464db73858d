package ppu

import "github.com/haldane-systems/gbcore/internal/types"

// dmgPalette decodes one of BGP/OBP0/OBP1 into four 2-bit shades.
type dmgPalette struct {
	raw uint8
}

func (p *dmgPalette) write(v uint8) { p.raw = v }
func (p *dmgPalette) read() uint8   { return p.raw }

func (p *dmgPalette) shade(colorIndex uint8) uint8 {
	return (p.raw >> (colorIndex * 2)) & 0x03
}

// cgbPalette is one of the two 64-byte CGB palette memories (background
// or sprite), holding 8 palettes of 4 RGB555 colors with an
// autoincrementing index register.
type cgbPalette struct {
	colors       [8][4][3]uint8 // 5-bit-scaled RGB, stored 0..31
	index        uint8
	incrementing bool
}

func (p *cgbPalette) writeIndex(v uint8) {
	p.index = v & 0x3F
	p.incrementing = v&0x80 != 0
}

func (p *cgbPalette) readIndex() uint8 {
	if p.incrementing {
		return p.index | 0x80
	}
	return p.index | 0x40
}

func (p *cgbPalette) readData() uint8 {
	pal, col := p.index>>3, (p.index&0x07)>>1
	c := p.colors[pal][col]
	packed := uint16(c[0]) | uint16(c[1])<<5 | uint16(c[2])<<10
	if p.index&0x01 == 0 {
		return uint8(packed)
	}
	return uint8(packed >> 8)
}

func (p *cgbPalette) writeData(v uint8) {
	pal, col := p.index>>3, (p.index&0x07)>>1
	c := &p.colors[pal][col]
	packed := uint16(c[0]) | uint16(c[1])<<5 | uint16(c[2])<<10
	if p.index&0x01 == 0 {
		packed = packed&0xFF00 | uint16(v)
	} else {
		packed = packed&0x00FF | uint16(v)<<8
	}
	c[0] = uint8(packed) & 0x1F
	c[1] = uint8(packed>>5) & 0x1F
	c[2] = uint8(packed>>10) & 0x1F
	if p.incrementing {
		p.index = (p.index + 1) & 0x3F
	}
}

// rgb888 returns the corrected, full-range color for a palette/color
// index pair.
func (p *cgbPalette) rgb888(paletteIndex, colorIndex uint8) (uint8, uint8, uint8) {
	c := p.colors[paletteIndex][colorIndex]
	return CorrectColor(c[0], c[1], c[2])
}

func (p *cgbPalette) save(s *types.State) {
	for _, pal := range p.colors {
		for _, c := range pal {
			s.Write8(c[0])
			s.Write8(c[1])
			s.Write8(c[2])
		}
	}
	s.Write8(p.index)
	s.WriteBool(p.incrementing)
}

func (p *cgbPalette) load(s *types.State) {
	for i := range p.colors {
		for j := range p.colors[i] {
			p.colors[i][j][0] = s.Read8()
			p.colors[i][j][1] = s.Read8()
			p.colors[i][j][2] = s.Read8()
		}
	}
	p.index = s.Read8()
	p.incrementing = s.ReadBool()
}

// grayscalePalette is the render palette for the four DMG shades,
// used for every pixel when the model is DMG.
var grayscalePalette = [4][3]uint8{
	{0xFF, 0xFF, 0xFF},
	{0xAA, 0xAA, 0xAA},
	{0x55, 0x55, 0x55},
	{0x00, 0x00, 0x00},
}

// CorrectColor applies the documented CGB LCD tint matrix, converting
// the panel's native 5-bit-per-channel color into the 8-bit RGB value
// the host framebuffer expects. Real CGB hardware's LCD does not
// reproduce RGB555 linearly; this is the standard correction used to
// match its output rather than a naive bit-replicated scale-up.
func CorrectColor(r5, g5, b5 uint8) (uint8, uint8, uint8) {
	r, g, b := uint32(r5), uint32(g5), uint32(b5)
	cr := (r*26 + g*4 + b*2)
	cg := (g*24 + b*8)
	cb := (r*6 + g*4 + b*22)
	clamp := func(v uint32) uint8 {
		v /= 4
		if v > 255 {
			return 255
		}
		return uint8(v)
	}
	return clamp(cr), clamp(cg), clamp(cb)
}
