package cartridge

import (
	"fmt"
	"unicode/utf8"
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// MapperKind identifies the banking scheme a cartridge type byte
// selects.
type MapperKind uint8

const (
	KindNoMapper MapperKind = iota
	KindMBC1
	KindMBC2
	KindMBC3
	KindMBC5
)

// Header describes the fixed 0x100-0x14F region of a ROM image.
type Header struct {
	Title       string
	CGBFlag     uint8
	Mapper      MapperKind
	HasRAM      bool
	HasBattery  bool
	HasRTC      bool
	HasRumble   bool
	ROMSize     int
	RAMSize     int
	ChecksumOK  bool
}

// cartridgeTypeInfo maps the byte at 0x147 to the mapper family and
// the auxiliary hardware it carries.
func cartridgeTypeInfo(b uint8) (MapperKind, bool, bool, bool, bool, bool) {
	// returns kind, ram, battery, rtc, rumble, ok
	switch b {
	case 0x00:
		return KindNoMapper, false, false, false, false, true
	case 0x08:
		return KindNoMapper, true, false, false, false, true
	case 0x09:
		return KindNoMapper, true, true, false, false, true
	case 0x01:
		return KindMBC1, false, false, false, false, true
	case 0x02:
		return KindMBC1, true, false, false, false, true
	case 0x03:
		return KindMBC1, true, true, false, false, true
	case 0x05:
		return KindMBC2, false, false, false, false, true
	case 0x06:
		return KindMBC2, true, true, false, false, true
	case 0x0F:
		return KindMBC3, false, true, true, false, true
	case 0x10:
		return KindMBC3, true, true, true, false, true
	case 0x11:
		return KindMBC3, false, false, false, false, true
	case 0x12:
		return KindMBC3, true, false, false, false, true
	case 0x13:
		return KindMBC3, true, true, false, false, true
	case 0x19:
		return KindMBC5, false, false, false, false, true
	case 0x1A:
		return KindMBC5, true, false, false, false, true
	case 0x1B:
		return KindMBC5, true, true, false, false, true
	case 0x1C:
		return KindMBC5, false, false, false, true, true
	case 0x1D:
		return KindMBC5, true, false, false, true, true
	case 0x1E:
		return KindMBC5, true, true, false, true, true
	}
	return KindNoMapper, false, false, false, false, false
}

var ramSizeTable = [...]int{0, 2 * 1024, 8 * 1024, 32 * 1024, 128 * 1024, 64 * 1024}

// ParseHeader validates and decodes a ROM image's header, returning
// the first Error encountered, in the order the hardware would
// notice them: logo, title, type, size indices, ROM length, checksum.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < 0x150 {
		return nil, &Error{Kind: ErrTooSmall}
	}

	for i, want := range nintendoLogo {
		if rom[0x104+i] != want {
			return nil, &Error{Kind: ErrInvalidLogo}
		}
	}

	titleBytes := rom[0x134:0x144]
	if !utf8.Valid(titleBytes) {
		return nil, &Error{Kind: ErrInvalidTitle}
	}
	title := ""
	for _, b := range titleBytes {
		if b == 0 {
			break
		}
		title += string(rune(b))
	}

	kind, hasRAM, hasBattery, hasRTC, hasRumble, ok := cartridgeTypeInfo(rom[0x147])
	if !ok {
		return nil, &Error{Kind: ErrUnsupportedMapper, Detail: fmt.Sprintf("0x%02X", rom[0x147])}
	}

	romSizeIdx := rom[0x148]
	if romSizeIdx > 8 {
		return nil, &Error{Kind: ErrInvalidROMSize}
	}
	romSize := 0x8000 << romSizeIdx

	ramSizeIdx := rom[0x149]
	if int(ramSizeIdx) >= len(ramSizeTable) {
		return nil, &Error{Kind: ErrInvalidRAMSize}
	}
	ramSize := ramSizeTable[ramSizeIdx]

	if len(rom) != romSize {
		return nil, &Error{Kind: ErrROMSizeMismatch, Detail: fmt.Sprintf("header=%d actual=%d", romSize, len(rom))}
	}

	var sum uint8
	for i := 0x134; i <= 0x14C; i++ {
		sum = sum - rom[i] - 1
	}
	if sum != rom[0x14D] {
		return nil, &Error{Kind: ErrChecksumMismatch}
	}

	return &Header{
		Title:      title,
		CGBFlag:    rom[0x143],
		Mapper:     kind,
		HasRAM:     hasRAM,
		HasBattery: hasBattery,
		HasRTC:     hasRTC,
		HasRumble:  hasRumble,
		ROMSize:    romSize,
		RAMSize:    ramSize,
		ChecksumOK: true,
	}, nil
}

// IsColor reports whether the cartridge declares CGB support. Bit 7
// set (0x80 or 0xC0) means the cartridge works on CGB; 0xC0 means
// CGB-only, which this core treats the same as 0x80.
func (h *Header) IsColor() bool {
	return h.CGBFlag&0x80 != 0
}
