package ppu

import (
	"testing"

	"github.com/haldane-systems/gbcore/internal/interrupts"
	"github.com/haldane-systems/gbcore/internal/types"
	"github.com/stretchr/testify/assert"
)

type fakeSink struct {
	requested []interrupts.Kind
}

func (f *fakeSink) Request(k interrupts.Kind) { f.requested = append(f.requested, k) }

func TestPostBootRegistersMatchDocumentedValues(t *testing.T) {
	p := New(types.ModelDMG, &fakeSink{}, nil)
	assert.Equal(t, uint8(0x91), p.ReadRegister(types.LCDC))
	assert.Equal(t, uint8(0xFC), p.ReadRegister(types.BGP))
}

func TestOAMLockedDuringOAMScanAndDrawing(t *testing.T) {
	p := New(types.ModelDMG, &fakeSink{}, nil)
	p.setMode(OAMScan)
	assert.True(t, p.OAMLocked())
	assert.Equal(t, uint8(0xFF), p.ReadOAM(0))

	p.setMode(HBlank)
	assert.False(t, p.OAMLocked())
}

func TestOAMNotLockedWhileLCDDisabled(t *testing.T) {
	p := New(types.ModelDMG, &fakeSink{}, nil)
	p.WriteRegister(types.LCDC, 0x00) // disable
	p.setMode(Drawing)
	assert.False(t, p.OAMLocked())
}

func TestVRAMLockedOnlyDuringDrawing(t *testing.T) {
	p := New(types.ModelDMG, &fakeSink{}, nil)
	p.setMode(Drawing)
	assert.True(t, p.VRAMLocked())
	p.WriteVRAM(0, 0x42) // dropped: VRAM locked during mode 3
	assert.Equal(t, uint8(0xFF), p.ReadVRAM(0)) // reads as 0xFF while locked

	p.setMode(HBlank)
	p.WriteVRAM(0, 0x42)
	assert.Equal(t, uint8(0x42), p.ReadVRAM(0))
}

func TestWriteOAMDMABypassesLock(t *testing.T) {
	p := New(types.ModelDMG, &fakeSink{}, nil)
	p.setMode(Drawing)
	p.WriteOAMDMA(0, 0x5A)
	p.setMode(HBlank)
	assert.Equal(t, uint8(0x5A), p.ReadOAM(0))
}

func TestVBKOnlyEffectiveOnCGB(t *testing.T) {
	dmg := New(types.ModelDMG, &fakeSink{}, nil)
	dmg.WriteRegister(types.VBK, 0x01)
	assert.Equal(t, uint8(0xFF), dmg.ReadRegister(types.VBK))

	cgb := New(types.ModelCGB, &fakeSink{}, nil)
	cgb.WriteRegister(types.VBK, 0x01)
	assert.Equal(t, uint8(0xFF), cgb.ReadRegister(types.VBK))
	assert.Equal(t, uint8(1), cgb.vramBank)
}

func TestDisablingLCDOutsideVBlankLogsButStillClearsFrame(t *testing.T) {
	p := New(types.ModelDMG, &fakeSink{}, nil)
	p.setMode(OAMScan) // not VBlank
	p.WriteRegister(types.LCDC, 0x00)
	assert.True(t, p.HasFrame())
	assert.Equal(t, uint8(0), p.ly)
}

func TestFullFrameTickProducesFrameAndRequestsVBlank(t *testing.T) {
	sink := &fakeSink{}
	p := New(types.ModelDMG, sink, nil)
	for i := 0; i < cyclesPerLine*linesPerFrame; i++ {
		p.Tick()
	}
	assert.True(t, p.HasFrame())
	assert.Contains(t, sink.requested, interrupts.VBlank)
}

func TestVBlankInterruptDelayedFourCyclesIntoLine144(t *testing.T) {
	sink := &fakeSink{}
	p := New(types.ModelDMG, sink, nil)

	// advance through lines 0..143 to land exactly on cycle 0 of line 144
	for i := 0; i < cyclesPerLine*144; i++ {
		p.Tick()
	}
	assert.Equal(t, uint8(144), p.ly)
	assert.Equal(t, uint16(0), p.cycle)

	for i := 0; i < 3; i++ {
		p.Tick()
		assert.NotContains(t, sink.requested, interrupts.VBlank, "must not fire before cycle 4")
		assert.Equal(t, HBlank, p.mode(), "mode must not switch before cycle 4")
	}

	p.Tick() // cycle 4
	assert.Contains(t, sink.requested, interrupts.VBlank)
	assert.Equal(t, VBlank, p.mode())
}

func TestLYCCoincidenceRequestsLCDStatOnRisingEdge(t *testing.T) {
	sink := &fakeSink{}
	p := New(types.ModelDMG, sink, nil)
	p.WriteRegister(types.STAT, 0x40) // enable LYC=LY interrupt source
	p.lyc = 0
	p.updateStatLine()
	assert.Contains(t, sink.requested, interrupts.LCDStat)
}

func TestCorrectColorMapsBlackAndWhiteExtremes(t *testing.T) {
	r, g, b := CorrectColor(0, 0, 0)
	assert.Equal(t, uint8(0), r)
	assert.Equal(t, uint8(0), g)
	assert.Equal(t, uint8(0), b)

	r, g, b = CorrectColor(31, 31, 31)
	assert.Equal(t, uint8(248), r)
	assert.Equal(t, uint8(248), g)
	assert.Equal(t, uint8(248), b)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := New(types.ModelDMG, &fakeSink{}, nil)
	p.WriteVRAM(0x10, 0x99)
	p.WriteRegister(types.SCX, 0x07)
	p.ly = 42

	s := types.NewState()
	p.Save(s)

	p2 := New(types.ModelDMG, &fakeSink{}, nil)
	p2.Load(types.StateFromBytes(s.Bytes()))

	assert.Equal(t, uint8(0x99), p2.ReadVRAM(0x10))
	assert.Equal(t, uint8(0x07), p2.ReadRegister(types.SCX))
	assert.Equal(t, uint8(42), p2.ly)
}
