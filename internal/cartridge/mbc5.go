package cartridge

import "github.com/haldane-systems/gbcore/internal/types"

// MBC5 supports a full 9-bit ROM bank number (up to 512 banks) and a
// 4-bit RAM bank number, plus an optional rumble motor bit that has
// no observable effect on emulated state.
type MBC5 struct {
	rom []byte
	ram []byte

	ramEnable bool
	romBankLo uint8 // low 8 bits of the ROM bank, written to 0x2000-0x2FFF
	romBankHi uint8 // bit 8, written to 0x3000-0x3FFF
	ramBank   uint8 // 4 bits; bit 3 is the rumble motor on rumble carts

	hasRumble bool
}

func newMBC5(rom []byte, ramSize int, hasRumble bool) *MBC5 {
	return &MBC5{rom: rom, ram: make([]byte, ramSize), hasRumble: hasRumble}
}

func (m *MBC5) romBankCount() int { return len(m.rom) / 0x4000 }

func (m *MBC5) ReadROM0(addr uint16) uint8 { return m.rom[addr] }

func (m *MBC5) ReadROMX(addr uint16) uint8 {
	bank := int(m.romBankLo) | int(m.romBankHi)<<8
	if n := m.romBankCount(); n > 0 {
		bank %= n
	}
	return m.rom[bank*0x4000+int(addr-0x4000)]
}

func (m *MBC5) WriteBankController(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnable = value&0x0F == 0x0A
	case addr < 0x3000:
		m.romBankLo = value
	case addr < 0x4000:
		m.romBankHi = value & 0x01
	case addr < 0x6000:
		if m.hasRumble {
			m.ramBank = value & 0x07 // bit 3 (rumble) is masked off the bank number
		} else {
			m.ramBank = value & 0x0F
		}
	}
}

func (m *MBC5) ramOffset(addr uint16) (int, bool) {
	if !m.ramEnable || len(m.ram) == 0 {
		return 0, false
	}
	off := int(m.ramBank)*0x2000 + int(addr-0xA000)
	if off >= len(m.ram) {
		return 0, false
	}
	return off, true
}

func (m *MBC5) ReadRAM(addr uint16) uint8 {
	off, ok := m.ramOffset(addr)
	if !ok {
		return 0xFF
	}
	return m.ram[off]
}

func (m *MBC5) WriteRAM(addr uint16, value uint8) {
	off, ok := m.ramOffset(addr)
	if !ok {
		return
	}
	m.ram[off] = value
}

func (m *MBC5) ClockMapper() {}

func (m *MBC5) SaveRAM() []byte  { return m.ram }
func (m *MBC5) LoadRAM(d []byte) { copy(m.ram, d) }

var _ Mapper = (*MBC5)(nil)
var _ RAMBacked = (*MBC5)(nil)

func (m *MBC5) Save(s *types.State) {
	s.WriteData(m.ram)
	s.WriteBool(m.ramEnable)
	s.Write8(m.romBankLo)
	s.Write8(m.romBankHi)
	s.Write8(m.ramBank)
}

func (m *MBC5) Load(s *types.State) {
	s.ReadData(m.ram)
	m.ramEnable = s.ReadBool()
	m.romBankLo = s.Read8()
	m.romBankHi = s.Read8()
	m.ramBank = s.Read8()
}
