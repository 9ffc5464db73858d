// Package cartridge holds the ROM/RAM image and the memory bank
// controller family that decodes banking-register writes and maps
// addresses into it.
package cartridge

import "github.com/haldane-systems/gbcore/internal/types"

// Cartridge is the immutable ROM plus mutable RAM/mapper state loaded
// from a cartridge image.
type Cartridge struct {
	ROM    []byte
	Header *Header
	Mapper Mapper
}

// New validates rom against the header rules documented in the
// cartridge file format and constructs the matching mapper. It is the
// only fallible construction path in the core.
func New(rom []byte) (*Cartridge, error) {
	header, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}

	var mapper Mapper
	switch header.Mapper {
	case KindNoMapper:
		mapper = newNoMapper(rom, header.RAMSize)
	case KindMBC1:
		mapper = newMBC1(rom, header.RAMSize)
	case KindMBC2:
		mapper = newMBC2(rom)
	case KindMBC3:
		mapper = newMBC3(rom, header.RAMSize, header.HasRTC)
	case KindMBC5:
		mapper = newMBC5(rom, header.RAMSize, header.HasRumble)
	}

	return &Cartridge{ROM: rom, Header: header, Mapper: mapper}, nil
}

// Read dispatches a CPU-visible read to the owning mapper method.
func (c *Cartridge) Read(addr uint16) uint8 {
	switch {
	case addr < 0x4000:
		return c.Mapper.ReadROM0(addr)
	case addr < 0x8000:
		return c.Mapper.ReadROMX(addr)
	case addr >= 0xA000 && addr < 0xC000:
		return c.Mapper.ReadRAM(addr)
	}
	return 0xFF
}

// Write dispatches a CPU-visible write to the owning mapper method.
func (c *Cartridge) Write(addr uint16, value uint8) {
	switch {
	case addr < 0x8000:
		c.Mapper.WriteBankController(addr, value)
	case addr >= 0xA000 && addr < 0xC000:
		c.Mapper.WriteRAM(addr, value)
	}
}

// Tick advances the mapper (RTC clocking for MBC3); the bus calls it
// once per base-rate T-cycle.
func (c *Cartridge) Tick() { c.Mapper.ClockMapper() }

// HasBattery reports whether the external RAM should survive a power
// cycle; the host is responsible for persisting BatteryRAM/BatteryRTC
// to whatever medium it likes (file, cloud, etc).
func (c *Cartridge) HasBattery() bool { return c.Header.HasBattery }

// BatteryRAM returns the raw external-RAM bytes for host persistence,
// or nil if the mapper has none.
func (c *Cartridge) BatteryRAM() []byte {
	if rb, ok := c.Mapper.(RAMBacked); ok {
		return rb.SaveRAM()
	}
	return nil
}

// LoadBatteryRAM restores previously-saved external RAM bytes.
func (c *Cartridge) LoadBatteryRAM(data []byte) {
	if rb, ok := c.Mapper.(RAMBacked); ok {
		rb.LoadRAM(data)
	}
}

// BatteryRTC returns the MBC3 real-time clock fields for host
// persistence in the <rom>.sav trailer, or ok=false if this
// cartridge has no RTC.
func (c *Cartridge) BatteryRTC() (seconds, minutes, hours uint8, days uint16, lastLatchUnix uint64, ok bool) {
	if rt, isRTC := c.Mapper.(RTCBacked); isRTC {
		s, mi, h, d, l := rt.SaveRTC()
		return s, mi, h, d, l, true
	}
	return 0, 0, 0, 0, 0, false
}

// LoadBatteryRTC restores previously-saved MBC3 RTC fields.
func (c *Cartridge) LoadBatteryRTC(seconds, minutes, hours uint8, days uint16, lastLatchUnix uint64) {
	if rt, ok := c.Mapper.(RTCBacked); ok {
		rt.LoadRTC(seconds, minutes, hours, days, lastLatchUnix)
	}
}

var _ types.Stater = (*Cartridge)(nil)

func (c *Cartridge) Save(s *types.State) { c.Mapper.Save(s) }
func (c *Cartridge) Load(s *types.State) { c.Mapper.Load(s) }
