package bus

import "github.com/haldane-systems/gbcore/internal/types"

// dmaBus identifies which bus an in-flight OAM-DMA transfer is
// driving, fixed for the whole transfer by the source address's high
// byte the moment the start delay elapses.
type dmaBus uint8

const (
	busNone dmaBus = iota
	busVideo
	busExternal
)

// oamDMA copies 160 bytes from `source..source+0xA0` into OAM, one
// byte per machine cycle after a fixed two-machine-cycle start delay.
type oamDMA struct {
	active bool
	source uint16
	cycle  uint8 // 0..161: 0-1 are the start delay, 2-161 each copy one byte

	conflictingBus dmaBus // which bus the CPU contends with while active
}

func (d *oamDMA) start(v uint8) {
	d.source = uint16(v) << 8
	d.cycle = 0
	d.active = true
	d.conflictingBus = busNone
}

// step runs one machine cycle of the transfer. It is called by the
// bus's cpu-synchronous fan-out, reading through the bus so the
// 0xFE/0xFF source redirect and echo-RAM aliasing apply uniformly.
func (d *oamDMA) step(b *Bus) {
	if !d.active {
		return
	}
	if d.cycle < 2 {
		d.cycle++
		if d.cycle == 2 {
			highByte := uint8(d.source >> 8)
			if highByte >= 0x80 && highByte <= 0x9F {
				d.conflictingBus = busVideo
			} else {
				d.conflictingBus = busExternal
			}
		}
		return
	}
	offset := uint16(d.cycle - 2)
	src := d.source + offset
	if src&0xFF00 == 0xFE00 || src&0xFF00 == 0xFF00 {
		src -= 0x2000
	}
	b.PPU.WriteOAMDMA(0xFE00+offset, b.readForDMA(src))
	d.cycle++
	if d.cycle >= 162 {
		d.active = false
		d.conflictingBus = busNone
	}
}

// conflicts reports whether the CPU-visible address is the one the
// DMA engine is currently driving, which substitutes the DMA's
// in-flight byte for a CPU read and drops a CPU write. Which
// addresses conflict depends on which bus the transfer's source
// occupies: a source in VRAM (0x8000-0x9FFF) drives the video bus and
// only contends with VRAM accesses; any other source drives the
// external bus and contends with ROM/SRAM everywhere, plus WRAM on
// DMG only (CGB's external bus does not reach WRAM).
func (d *oamDMA) conflicts(addr uint16, isCGB bool) bool {
	if !d.active || d.cycle < 2 {
		return false
	}
	if addr >= 0xFE00 && addr < 0xFEA0 {
		return true
	}
	switch d.conflictingBus {
	case busVideo:
		return addr >= 0x8000 && addr < 0xA000
	case busExternal:
		if addr < 0x8000 {
			return true
		}
		return !isCGB && addr >= 0xA000 && addr < 0xE000
	default:
		return false
	}
}

func (d *oamDMA) currentByte(b *Bus) uint8 {
	offset := uint16(d.cycle - 2)
	src := d.source + offset
	if src&0xFF00 == 0xFE00 || src&0xFF00 == 0xFF00 {
		src -= 0x2000
	}
	return b.readForDMA(src)
}

func (d *oamDMA) save(s *types.State) {
	s.WriteBool(d.active)
	s.Write16(d.source)
	s.Write8(d.cycle)
	s.Write8(uint8(d.conflictingBus))
}

func (d *oamDMA) load(s *types.State) {
	d.active = s.ReadBool()
	d.source = s.Read16()
	d.cycle = s.Read8()
	d.conflictingBus = dmaBus(s.Read8())
}
