package cartridge

import "github.com/haldane-systems/gbcore/internal/types"

// Mapper is the uniform interface every memory bank controller
// variant implements. It is a closed, statically-constructed family
// (NoMapper, MBC1, MBC2, MBC3, MBC5); dispatch is through this
// interface rather than a type switch, which is equally acceptable
// per the design notes.
type Mapper interface {
	// ReadROM0 reads from the fixed 0x0000-0x3FFF window.
	ReadROM0(addr uint16) uint8
	// ReadROMX reads from the switchable 0x4000-0x7FFF window.
	ReadROMX(addr uint16) uint8
	// WriteBankController handles a write anywhere in 0x0000-0x7FFF,
	// which on real hardware never touches ROM and only latches
	// banking/control registers.
	WriteBankController(addr uint16, value uint8)
	// ReadRAM reads from the cartridge RAM window 0xA000-0xBFFF.
	ReadRAM(addr uint16) uint8
	// WriteRAM writes to the cartridge RAM window.
	WriteRAM(addr uint16, value uint8)
	// ClockMapper is ticked once per base-rate (non double-speed)
	// T-cycle; only MBC3 does anything with it.
	ClockMapper()

	types.Stater
}

// RAMBacked is implemented by mappers that expose their external RAM
// for battery persistence. NoMapper, MBC1, MBC3 and MBC5 implement it;
// MBC2 exposes its internal nibble RAM the same way.
type RAMBacked interface {
	SaveRAM() []byte
	LoadRAM([]byte)
}

// RTCBacked is implemented by MBC3 when it carries a real-time clock.
// The RTC fields are exposed for battery persistence through
// Cartridge.BatteryRTC and Cartridge.LoadBatteryRTC.
type RTCBacked interface {
	SaveRTC() (seconds, minutes, hours uint8, days uint16, lastLatchUnix uint64)
	LoadRTC(seconds, minutes, hours uint8, days uint16, lastLatchUnix uint64)
}
