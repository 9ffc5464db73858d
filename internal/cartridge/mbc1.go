package cartridge

import "github.com/haldane-systems/gbcore/internal/types"

// MBC1 implements the first, and most common, memory bank
// controller: a 5-bit low ROM bank register, a 2-bit register shared
// between the high ROM bank bits and the RAM bank, and a mode flag
// that decides which of those two uses is active.
type MBC1 struct {
	rom []byte
	ram []byte

	ramEnable bool
	bank1     uint8 // 5 bits, 0 coerced to 1
	bank2     uint8 // 2 bits
	mode      bool

	multicart bool
}

func newMBC1(rom []byte, ramSize int) *MBC1 {
	m := &MBC1{rom: rom, ram: make([]byte, ramSize), bank1: 1}
	m.detectMulticart()
	return m
}

// detectMulticart looks for the Nintendo logo at each of the four
// 0x40000-aligned bank boundaries of an 8 Mbit (1 MiB) ROM; finding it
// at more than one boundary marks the cartridge as a multicart, which
// shifts bank2 by 4 bits instead of 5 when composing the ROM bank
// number.
func (m *MBC1) detectMulticart() {
	if len(m.rom) != 1024*1024 {
		return
	}
	matches := 0
	for bank := 0; bank < 4; bank++ {
		base := bank * 0x40000
		ok := true
		for i, want := range nintendoLogo {
			if m.rom[base+0x104+i] != want {
				ok = false
				break
			}
		}
		if ok {
			matches++
		}
	}
	m.multicart = matches > 1
}

func (m *MBC1) bankShift() uint8 {
	if m.multicart {
		return 4
	}
	return 5
}

func (m *MBC1) romBankCount() int { return len(m.rom) / 0x4000 }

func (m *MBC1) romXBank() int {
	bank := uint16(m.bank1) | uint16(m.bank2)<<m.bankShift()
	n := m.romBankCount()
	if n > 0 {
		bank %= uint16(n)
	}
	return int(bank)
}

func (m *MBC1) rom0Bank() int {
	if !m.mode {
		return 0
	}
	bank := uint16(m.bank2) << m.bankShift()
	n := m.romBankCount()
	if n > 0 {
		bank %= uint16(n)
	}
	return int(bank)
}

func (m *MBC1) ramBank() int {
	if !m.mode {
		return 0
	}
	return int(m.bank2 & 0x03)
}

func (m *MBC1) ReadROM0(addr uint16) uint8 {
	return m.rom[m.rom0Bank()*0x4000+int(addr)]
}

func (m *MBC1) ReadROMX(addr uint16) uint8 {
	return m.rom[m.romXBank()*0x4000+int(addr-0x4000)]
}

func (m *MBC1) WriteBankController(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnable = value&0x0F == 0x0A
	case addr < 0x4000:
		value &= 0x1F
		if value == 0 {
			value = 1
		}
		if m.multicart {
			value &= 0x0F
		}
		m.bank1 = value
	case addr < 0x6000:
		m.bank2 = value & 0x03
	case addr < 0x8000:
		m.mode = value&0x01 != 0
	}
}

func (m *MBC1) ramOffset(addr uint16) (int, bool) {
	if !m.ramEnable || len(m.ram) == 0 {
		return 0, false
	}
	bankSize := 0x2000
	off := m.ramBank()*bankSize + int(addr-0xA000)
	if off >= len(m.ram) {
		off %= len(m.ram)
	}
	return off, true
}

func (m *MBC1) ReadRAM(addr uint16) uint8 {
	off, ok := m.ramOffset(addr)
	if !ok {
		return 0xFF
	}
	return m.ram[off]
}

func (m *MBC1) WriteRAM(addr uint16, value uint8) {
	off, ok := m.ramOffset(addr)
	if !ok {
		return
	}
	m.ram[off] = value
}

func (m *MBC1) ClockMapper() {}

func (m *MBC1) SaveRAM() []byte  { return m.ram }
func (m *MBC1) LoadRAM(d []byte) { copy(m.ram, d) }

var _ Mapper = (*MBC1)(nil)
var _ RAMBacked = (*MBC1)(nil)

func (m *MBC1) Save(s *types.State) {
	s.WriteData(m.ram)
	s.WriteBool(m.ramEnable)
	s.Write8(m.bank1)
	s.Write8(m.bank2)
	s.WriteBool(m.mode)
	s.WriteBool(m.multicart)
}

func (m *MBC1) Load(s *types.State) {
	s.ReadData(m.ram)
	m.ramEnable = s.ReadBool()
	m.bank1 = s.Read8()
	m.bank2 = s.Read8()
	m.mode = s.ReadBool()
	m.multicart = s.ReadBool()
}
