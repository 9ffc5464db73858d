package cartridge

import "github.com/haldane-systems/gbcore/internal/types"

// NoMapper is a direct-mapped cartridge: a 32 KiB ROM with an
// optional 8 KiB RAM window and no banking registers at all.
type NoMapper struct {
	rom []byte
	ram []byte
}

func newNoMapper(rom []byte, ramSize int) *NoMapper {
	return &NoMapper{rom: rom, ram: make([]byte, ramSize)}
}

func (m *NoMapper) ReadROM0(addr uint16) uint8 { return m.rom[addr] }
func (m *NoMapper) ReadROMX(addr uint16) uint8 { return m.rom[addr] }

func (m *NoMapper) WriteBankController(addr uint16, value uint8) {
	// no registers to latch; ROM is read-only.
}

func (m *NoMapper) ReadRAM(addr uint16) uint8 {
	off := addr - 0xA000
	if int(off) >= len(m.ram) {
		return 0xFF
	}
	return m.ram[off]
}

func (m *NoMapper) WriteRAM(addr uint16, value uint8) {
	off := addr - 0xA000
	if int(off) >= len(m.ram) {
		return
	}
	m.ram[off] = value
}

func (m *NoMapper) ClockMapper() {}

func (m *NoMapper) SaveRAM() []byte  { return m.ram }
func (m *NoMapper) LoadRAM(d []byte) { copy(m.ram, d) }

var _ Mapper = (*NoMapper)(nil)
var _ RAMBacked = (*NoMapper)(nil)

func (m *NoMapper) Save(s *types.State) { s.WriteData(m.ram) }
func (m *NoMapper) Load(s *types.State) { s.ReadData(m.ram) }
