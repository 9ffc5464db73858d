package cartridge

import "github.com/haldane-systems/gbcore/internal/types"

// MBC2 carries its own 512x4-bit internal RAM rather than external
// cartridge RAM; only the lower nibble of each byte is meaningful, the
// upper nibble always reads back as 1s. The ROM bank register lives
// in the same 0x2000-0x3FFF window as MBC1's bank1, but is only
// latched when address bit 8 is set.
type MBC2 struct {
	rom []byte
	ram [512]byte // one nibble per byte, only low nibble used

	ramEnable bool
	romBank   uint8 // 4 bits, 0 coerced to 1
}

func newMBC2(rom []byte) *MBC2 {
	return &MBC2{rom: rom, romBank: 1}
}

func (m *MBC2) romBankCount() int { return len(m.rom) / 0x4000 }

func (m *MBC2) ReadROM0(addr uint16) uint8 { return m.rom[addr] }

func (m *MBC2) ReadROMX(addr uint16) uint8 {
	bank := int(m.romBank)
	if n := m.romBankCount(); n > 0 {
		bank %= n
	}
	return m.rom[bank*0x4000+int(addr-0x4000)]
}

func (m *MBC2) WriteBankController(addr uint16, value uint8) {
	if addr >= 0x4000 {
		return
	}
	// bit 8 of the address selects RAM-enable vs ROM-bank latching.
	if addr&0x100 == 0 {
		m.ramEnable = value&0x0F == 0x0A
		return
	}
	value &= 0x0F
	if value == 0 {
		value = 1
	}
	m.romBank = value
}

func (m *MBC2) ReadRAM(addr uint16) uint8 {
	if !m.ramEnable {
		return 0xFF
	}
	idx := (addr - 0xA000) % 512
	return m.ram[idx] | 0xF0
}

func (m *MBC2) WriteRAM(addr uint16, value uint8) {
	if !m.ramEnable {
		return
	}
	idx := (addr - 0xA000) % 512
	m.ram[idx] = value & 0x0F
}

func (m *MBC2) ClockMapper() {}

func (m *MBC2) SaveRAM() []byte  { return m.ram[:] }
func (m *MBC2) LoadRAM(d []byte) { copy(m.ram[:], d) }

var _ Mapper = (*MBC2)(nil)
var _ RAMBacked = (*MBC2)(nil)

func (m *MBC2) Save(s *types.State) {
	s.WriteData(m.ram[:])
	s.WriteBool(m.ramEnable)
	s.Write8(m.romBank)
}

func (m *MBC2) Load(s *types.State) {
	s.ReadData(m.ram[:])
	m.ramEnable = s.ReadBool()
	m.romBank = s.Read8()
}
