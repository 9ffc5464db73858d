package cartridge

import "github.com/haldane-systems/gbcore/internal/types"

// cyclesPerRTCSecond is how many ClockMapper calls elapse per
// simulated RTC second; the clock is driven from the mapper tick
// rather than wall-clock time so that it stays deterministic and
// fast-forwardable under save states.
const cyclesPerRTCSecond = 4194304 / 2

// MBC3 supports up to 128 ROM banks and 4 RAM banks, plus an optional
// real-time clock exposed as five extra "RAM bank" selections
// (0x08-0x0C) latched by a 0->1 transition written to 0x6000-0x7FFF.
type MBC3 struct {
	rom []byte
	ram []byte

	ramEnable bool
	romBank   uint8 // 7 bits, 0 coerced to 1
	bankSel   uint8 // RAM bank 0-3, or RTC register select 0x08-0x0C

	hasRTC bool
	rtc    rtcState
}

type rtcState struct {
	seconds, minutes, hours uint8
	days                    uint16 // 9 bits; bit 8 is the MSB, carry and halt live alongside
	dayCarry                bool
	halt                    bool

	latchSeconds, latchMinutes, latchHours uint8
	latchDays                              uint16
	latchDayCarry                          bool
	latchHalt                              bool

	lastLatchWriteBit0 uint8
	subSecondCycles    uint32
	lastLatchUnix      uint64
}

func newMBC3(rom []byte, ramSize int, hasRTC bool) *MBC3 {
	return &MBC3{rom: rom, ram: make([]byte, ramSize), romBank: 1, hasRTC: hasRTC}
}

func (m *MBC3) romBankCount() int { return len(m.rom) / 0x4000 }

func (m *MBC3) ReadROM0(addr uint16) uint8 { return m.rom[addr] }

func (m *MBC3) ReadROMX(addr uint16) uint8 {
	bank := int(m.romBank)
	if n := m.romBankCount(); n > 0 {
		bank %= n
	}
	return m.rom[bank*0x4000+int(addr-0x4000)]
}

func (m *MBC3) WriteBankController(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnable = value&0x0F == 0x0A
	case addr < 0x4000:
		value &= 0x7F
		if value == 0 {
			value = 1
		}
		m.romBank = value
	case addr < 0x6000:
		m.bankSel = value
	case addr < 0x8000:
		if m.hasRTC && m.rtc.lastLatchWriteBit0 == 0 && value&1 == 1 {
			m.latchRTC()
		}
		m.rtc.lastLatchWriteBit0 = value & 1
	}
}

func (m *MBC3) latchRTC() {
	m.rtc.latchSeconds = m.rtc.seconds
	m.rtc.latchMinutes = m.rtc.minutes
	m.rtc.latchHours = m.rtc.hours
	m.rtc.latchDays = m.rtc.days
	m.rtc.latchDayCarry = m.rtc.dayCarry
	m.rtc.latchHalt = m.rtc.halt
}

func (m *MBC3) ReadRAM(addr uint16) uint8 {
	if m.hasRTC && m.bankSel >= 0x08 && m.bankSel <= 0x0C {
		switch m.bankSel {
		case 0x08:
			return m.rtc.latchSeconds
		case 0x09:
			return m.rtc.latchMinutes
		case 0x0A:
			return m.rtc.latchHours
		case 0x0B:
			return uint8(m.rtc.latchDays & 0xFF)
		case 0x0C:
			v := uint8(m.rtc.latchDays>>8) & 0x01
			if m.rtc.latchHalt {
				v |= 0x40
			}
			if m.rtc.latchDayCarry {
				v |= 0x80
			}
			return v
		}
	}
	if !m.ramEnable || len(m.ram) == 0 {
		return 0xFF
	}
	off := int(m.bankSel&0x03)*0x2000 + int(addr-0xA000)
	if off >= len(m.ram) {
		return 0xFF
	}
	return m.ram[off]
}

func (m *MBC3) WriteRAM(addr uint16, value uint8) {
	if m.hasRTC && m.bankSel >= 0x08 && m.bankSel <= 0x0C {
		switch m.bankSel {
		case 0x08:
			m.rtc.seconds = value % 60
		case 0x09:
			m.rtc.minutes = value % 60
		case 0x0A:
			m.rtc.hours = value % 24
		case 0x0B:
			m.rtc.days = (m.rtc.days & 0x100) | uint16(value)
		case 0x0C:
			m.rtc.days = (m.rtc.days & 0xFF) | (uint16(value&0x01) << 8)
			m.rtc.halt = value&0x40 != 0
			m.rtc.dayCarry = value&0x80 != 0
		}
		return
	}
	if !m.ramEnable || len(m.ram) == 0 {
		return
	}
	off := int(m.bankSel&0x03)*0x2000 + int(addr-0xA000)
	if off >= len(m.ram) {
		return
	}
	m.ram[off] = value
}

// ClockMapper advances the RTC by one simulated second every
// cyclesPerRTCSecond calls, unless halted. Monotonic: the exposed
// (latched) registers only change at the next 0->1 latch sequence.
func (m *MBC3) ClockMapper() {
	if !m.hasRTC || m.rtc.halt {
		return
	}
	m.rtc.subSecondCycles++
	if m.rtc.subSecondCycles < cyclesPerRTCSecond {
		return
	}
	m.rtc.subSecondCycles = 0

	m.rtc.seconds++
	if m.rtc.seconds < 60 {
		return
	}
	m.rtc.seconds = 0
	m.rtc.minutes++
	if m.rtc.minutes < 60 {
		return
	}
	m.rtc.minutes = 0
	m.rtc.hours++
	if m.rtc.hours < 24 {
		return
	}
	m.rtc.hours = 0
	m.rtc.days++
	if m.rtc.days > 0x1FF {
		m.rtc.days = 0
		m.rtc.dayCarry = true
	}
}

func (m *MBC3) SaveRAM() []byte  { return m.ram }
func (m *MBC3) LoadRAM(d []byte) { copy(m.ram, d) }

func (m *MBC3) SaveRTC() (seconds, minutes, hours uint8, days uint16, lastLatchUnix uint64) {
	return m.rtc.seconds, m.rtc.minutes, m.rtc.hours, m.rtc.days, m.rtc.lastLatchUnix
}

func (m *MBC3) LoadRTC(seconds, minutes, hours uint8, days uint16, lastLatchUnix uint64) {
	m.rtc.seconds, m.rtc.minutes, m.rtc.hours, m.rtc.days = seconds, minutes, hours, days
	m.rtc.lastLatchUnix = lastLatchUnix
}

var _ Mapper = (*MBC3)(nil)
var _ RAMBacked = (*MBC3)(nil)
var _ RTCBacked = (*MBC3)(nil)

func (m *MBC3) Save(s *types.State) {
	s.WriteData(m.ram)
	s.WriteBool(m.ramEnable)
	s.Write8(m.romBank)
	s.Write8(m.bankSel)
	s.Write8(m.rtc.seconds)
	s.Write8(m.rtc.minutes)
	s.Write8(m.rtc.hours)
	s.Write16(m.rtc.days)
	s.WriteBool(m.rtc.dayCarry)
	s.WriteBool(m.rtc.halt)
	s.Write8(m.rtc.latchSeconds)
	s.Write8(m.rtc.latchMinutes)
	s.Write8(m.rtc.latchHours)
	s.Write16(m.rtc.latchDays)
	s.WriteBool(m.rtc.latchDayCarry)
	s.WriteBool(m.rtc.latchHalt)
	s.Write8(m.rtc.lastLatchWriteBit0)
	s.Write32(m.rtc.subSecondCycles)
	s.Write64(m.rtc.lastLatchUnix)
}

func (m *MBC3) Load(s *types.State) {
	s.ReadData(m.ram)
	m.ramEnable = s.ReadBool()
	m.romBank = s.Read8()
	m.bankSel = s.Read8()
	m.rtc.seconds = s.Read8()
	m.rtc.minutes = s.Read8()
	m.rtc.hours = s.Read8()
	m.rtc.days = s.Read16()
	m.rtc.dayCarry = s.ReadBool()
	m.rtc.halt = s.ReadBool()
	m.rtc.latchSeconds = s.Read8()
	m.rtc.latchMinutes = s.Read8()
	m.rtc.latchHours = s.Read8()
	m.rtc.latchDays = s.Read16()
	m.rtc.latchDayCarry = s.ReadBool()
	m.rtc.latchHalt = s.ReadBool()
	m.rtc.lastLatchWriteBit0 = s.Read8()
	m.rtc.subSecondCycles = s.Read32()
	m.rtc.lastLatchUnix = s.Read64()
}
