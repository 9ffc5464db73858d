package cpu

import (
	"testing"

	"github.com/haldane-systems/gbcore/internal/bus"
	"github.com/haldane-systems/gbcore/internal/cartridge"
	"github.com/haldane-systems/gbcore/internal/log"
	"github.com/haldane-systems/gbcore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// newTestCPU builds a 32 KiB no-mapper cartridge and a CPU/Bus pair
// positioned at the post-boot state (no boot ROM), with code prewritten
// starting at 0x0100.
func newTestCPU(t *testing.T, code ...uint8) (*CPU, *bus.Bus) {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom[0x104:0x134], nintendoLogo[:])
	copy(rom[0x134:0x144], "TEST")
	var sum uint8
	for i := 0x134; i <= 0x14C; i++ {
		sum = sum - rom[i] - 1
	}
	rom[0x14D] = sum
	copy(rom[0x100:], code)

	cart, err := cartridge.New(rom)
	require.NoError(t, err)

	b := bus.New(types.ModelDMG, cart, nil, log.Nop())
	c := New(b, types.ModelDMG)
	return c, b
}

func TestNOPConsumesOneMachineCycle(t *testing.T) {
	c, b := newTestCPU(t, 0x00) // NOP
	c.Step()
	assert.Equal(t, uint64(4), b.ElapsedCycles())
}

func TestLDrD8(t *testing.T) {
	c, b := newTestCPU(t, 0x06, 0x42) // LD B,0x42
	b.ElapsedCycles()
	c.Step()
	assert.Equal(t, uint8(0x42), c.B)
	assert.Equal(t, uint16(0x0102), c.PC)
}

func TestIncDecFlags(t *testing.T) {
	c, _ := newTestCPU(t, 0x3C, 0x3D) // INC A, DEC A
	c.A = 0xFF
	c.Step()
	assert.Equal(t, uint8(0x00), c.A)
	assert.True(t, c.HasFlag(FlagZero))
	assert.True(t, c.HasFlag(FlagHalfCarry))

	c.Step()
	assert.Equal(t, uint8(0xFF), c.A)
	assert.True(t, c.HasFlag(FlagSubtract))
}

func TestJRTaken(t *testing.T) {
	c, _ := newTestCPU(t, 0x18, 0x05) // JR +5
	c.Step()
	assert.Equal(t, uint16(0x0107), c.PC)
}

func TestPushPopRoundTrip(t *testing.T) {
	c, _ := newTestCPU(t, 0xC5, 0xD1) // PUSH BC, POP DE
	c.SetBC(0xBEEF)
	c.SP = 0xFFFE
	c.Step()
	c.Step()
	assert.Equal(t, uint16(0xBEEF), c.DE())
}

func TestHaltBugExecutesFollowingByteTwice(t *testing.T) {
	c, _ := newTestCPU(t, 0x76, 0x3C) // HALT, INC A
	c.irq.Enable = 1 << 0             // VBlank enabled
	c.irq.Requested = 1 << 0          // and pending
	c.irq.IME = false

	c.Step() // executes HALT, detects the bug precondition
	require.Equal(t, modeHaltBug, c.mode)

	startPC := c.PC
	c.A = 0x00
	c.Step() // re-reads the opcode at PC without advancing it first
	assert.Equal(t, startPC, c.PC, "the halt-bug fetch must not advance PC")
	assert.Equal(t, uint8(0x01), c.A, "INC A should have executed once already")

	c.Step() // normal fetch now re-reads the same byte and advances PC
	assert.Equal(t, startPC+1, c.PC)
	assert.Equal(t, uint8(0x02), c.A, "the byte after HALT executes a second time")
}

func TestInterruptDispatchPushesPCAndJumps(t *testing.T) {
	c, _ := newTestCPU(t, 0x00) // NOP runs first, then the interrupt is dispatched
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.irq.IME = true
	c.irq.Enable = 1 << 0
	c.irq.Requested = 1 << 0

	c.Step()
	assert.Equal(t, uint16(0x0040), c.PC)
	assert.False(t, c.irq.IME)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c, _ := newTestCPU(t, 0x00)
	c.A, c.B, c.PC, c.SP = 0x11, 0x22, 0x1234, 0xFFF0

	s := types.NewState()
	c.Save(s)

	c2, _ := newTestCPU(t, 0x00)
	c2.Load(types.StateFromBytes(s.Bytes()))

	assert.Equal(t, c.A, c2.A)
	assert.Equal(t, c.B, c2.B)
	assert.Equal(t, c.PC, c2.PC)
	assert.Equal(t, c.SP, c2.SP)
}
