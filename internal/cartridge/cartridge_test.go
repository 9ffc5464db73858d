package cartridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHeaderROM(sizeIdx, mapperByte uint8, ramSizeIdx ...uint8) []byte {
	size := 0x8000 << sizeIdx
	rom := make([]byte, size)
	copy(rom[0x104:0x134], nintendoLogo[:])
	copy(rom[0x134:0x144], "TESTGAME")
	rom[0x147] = mapperByte
	rom[0x148] = sizeIdx
	if len(ramSizeIdx) > 0 {
		rom[0x149] = ramSizeIdx[0]
	}

	var sum uint8
	for i := 0x134; i <= 0x14C; i++ {
		sum = sum - rom[i] - 1
	}
	rom[0x14D] = sum
	return rom
}

func TestNewRejectsTooSmall(t *testing.T) {
	_, err := New(make([]byte, 0x10))
	require.Error(t, err)
	var cartErr *Error
	require.ErrorAs(t, err, &cartErr)
	assert.Equal(t, ErrTooSmall, cartErr.Kind)
}

func TestNewRejectsBadLogo(t *testing.T) {
	rom := validHeaderROM(0, 0x00)
	rom[0x104] = 0xFF
	_, err := New(rom)
	var cartErr *Error
	require.ErrorAs(t, err, &cartErr)
	assert.Equal(t, ErrInvalidLogo, cartErr.Kind)
}

func TestNewRejectsBadChecksum(t *testing.T) {
	rom := validHeaderROM(0, 0x00)
	rom[0x14D] ^= 0xFF
	_, err := New(rom)
	var cartErr *Error
	require.ErrorAs(t, err, &cartErr)
	assert.Equal(t, ErrChecksumMismatch, cartErr.Kind)
}

func TestNewRejectsROMSizeMismatch(t *testing.T) {
	rom := validHeaderROM(0, 0x00)
	rom = rom[:len(rom)-0x4000]
	_, err := New(rom)
	var cartErr *Error
	require.ErrorAs(t, err, &cartErr)
	assert.Equal(t, ErrROMSizeMismatch, cartErr.Kind)
}

func TestNewParsesNoMapper(t *testing.T) {
	rom := validHeaderROM(0, 0x00)
	c, err := New(rom)
	require.NoError(t, err)
	assert.Equal(t, "TESTGAME", c.Header.Title)
	assert.Equal(t, KindNoMapper, c.Header.Mapper)
}

func TestMBC1BankZeroCoercedToOne(t *testing.T) {
	rom := validHeaderROM(3, 0x01) // 16 banks, MBC1 no RAM
	c, err := New(rom)
	require.NoError(t, err)

	c.Write(0x2000, 0x00) // select bank 0
	// distinguish bank 1 from bank 0 at the same offset within each bank
	rom[0x4100] = 0xAB
	assert.Equal(t, uint8(0xAB), c.Read(0x4100))
}

func TestMBC1RAMReadAfterWrite(t *testing.T) {
	rom := validHeaderROM(0, 0x03, 2) // MBC1+RAM+battery, 8 KiB RAM
	c, err := New(rom)
	require.NoError(t, err)

	c.Write(0x0000, 0x0A) // enable RAM
	c.Write(0xA000, 0x42)
	assert.Equal(t, uint8(0x42), c.Read(0xA000))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	rom := validHeaderROM(0, 0x03, 2)
	c, err := New(rom)
	require.NoError(t, err)
	c.Write(0x0000, 0x0A)
	c.Write(0xA000, 0x99)

	ram := c.BatteryRAM()
	require.NotNil(t, ram)

	c2, err := New(rom)
	require.NoError(t, err)
	c2.LoadBatteryRAM(ram)
	c2.Write(0x0000, 0x0A)
	assert.Equal(t, uint8(0x99), c2.Read(0xA000))
}
