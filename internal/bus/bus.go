// Package bus wires every peripheral into a single 16-bit address
// space and drives the per-machine-cycle fan-out that advances them in
// lockstep with the CPU.
package bus

import (
	"github.com/haldane-systems/gbcore/internal/apu"
	"github.com/haldane-systems/gbcore/internal/cartridge"
	"github.com/haldane-systems/gbcore/internal/interrupts"
	"github.com/haldane-systems/gbcore/internal/joypad"
	"github.com/haldane-systems/gbcore/internal/log"
	"github.com/haldane-systems/gbcore/internal/ppu"
	"github.com/haldane-systems/gbcore/internal/serial"
	"github.com/haldane-systems/gbcore/internal/timer"
	"github.com/haldane-systems/gbcore/internal/types"
)

// Bus owns every memory-mapped peripheral and the fixed decode table
// that maps the CPU's 16-bit address space onto them.
type Bus struct {
	model types.Model
	log   log.Logger

	Cart   *cartridge.Cartridge
	PPU    *ppu.PPU
	APU    *apu.APU
	Timer  *timer.Controller
	Joypad *joypad.State
	Serial *serial.Controller
	IRQ    *interrupts.State

	wram *wram
	hram [127]byte

	bootROM     []byte
	bootEnabled bool

	dma  oamDMA
	hdma *hdma

	doubleSpeed      bool
	speedSwitchArmed bool

	lastDMAValue uint8
	rp           uint8
	unknownRegs  [4]uint8 // FF72-FF75, general CGB scratch bytes

	elapsedCycles uint64 // base-rate T-cycles elapsed, drained by the frame driver
}

// New wires a fresh Bus around cart for the given model. bootROM may be
// nil, in which case the bus starts with the boot ROM already disabled
// and every register at its documented post-boot value.
func New(model types.Model, cart *cartridge.Cartridge, bootROM []byte, logger log.Logger) *Bus {
	if logger == nil {
		logger = log.Nop()
	}
	irq := interrupts.New()
	b := &Bus{
		model:       model,
		log:         logger,
		Cart:        cart,
		PPU:         ppu.New(model, irq, logger),
		APU:         apu.New(),
		Timer:       timer.New(irq),
		Joypad:      joypad.New(irq),
		Serial:      serial.New(irq),
		IRQ:         irq,
		wram:        newWRAM(),
		hdma:        newHDMA(),
		bootROM:     bootROM,
		bootEnabled: len(bootROM) > 0,
	}
	return b
}

func (b *Bus) isCGB() bool { return b.model == types.ModelCGB }

// BootROMActive reports whether the boot ROM overlay is still mapped,
// used by the CPU constructor to decide whether to reset to the boot
// vector or to the documented post-boot register state.
func (b *Bus) BootROMActive() bool { return b.bootEnabled }

// DoubleSpeed reports whether CGB double-speed mode is active.
func (b *Bus) DoubleSpeed() bool { return b.doubleSpeed }

// armSpeedSwitch handles a KEY1 write's bit 0.
func (b *Bus) armSpeedSwitch(armed bool) { b.speedSwitchArmed = armed }

// CommitSpeedSwitch is called by the CPU's STOP handler. If a switch is
// armed it flips the clock multiplier and reports true; otherwise it
// reports false, meaning STOP should instead wait for a button press.
func (b *Bus) CommitSpeedSwitch() bool {
	if !b.speedSwitchArmed {
		return false
	}
	b.doubleSpeed = !b.doubleSpeed
	b.speedSwitchArmed = false
	return true
}

// AnyButtonPressed reports whether STOP's wait-for-input condition is
// satisfied.
func (b *Bus) AnyButtonPressed() bool { return b.Joypad.AnyPressed() }

// ElapsedCycles drains and returns the number of base-rate T-cycles
// advanced since the last call, which the top-level engine uses to
// clock a fixed-length frame.
func (b *Bus) ElapsedCycles() uint64 {
	n := b.elapsedCycles
	b.elapsedCycles = 0
	return n
}

// Read performs one CPU-visible byte read, consuming one machine
// cycle.
func (b *Bus) Read(addr uint16) uint8 {
	b.checkOAMBugHazard(addr, ppu.HazardRead)
	v := b.readByte(addr)
	b.stepMachineCycle()
	return v
}

// Write performs one CPU-visible byte write, consuming one machine
// cycle.
func (b *Bus) Write(addr uint16, v uint8) {
	b.checkOAMBugHazard(addr, ppu.HazardWrite)
	b.writeByte(addr, v)
	b.stepMachineCycle()
}

// checkOAMBugHazard applies the DMG OAM-bug corruption whenever the
// CPU's address bus touches 0xFE00-0xFEFF while the PPU is scanning
// OAM, independent of whether the access is actually to OAM (the real
// hazard is triggered by the address value alone). A single CPU
// instruction that both reads and writes the same address in one step
// (e.g. INC (HL) when HL aims there) is treated as two independent
// hazards rather than the combined read-write corruption shape; that
// combined shape is narrow enough in practice to leave unmodeled here.
func (b *Bus) checkOAMBugHazard(addr uint16, kind ppu.HazardKind) {
	if addr < 0xFE00 || addr >= 0xFF00 {
		return
	}
	if row, ok := b.PPU.OAMBugRow(); ok {
		b.PPU.ApplyOAMBugHazard(kind, row)
	}
}

// TickOnly advances one machine cycle with no associated bus access,
// for instructions whose timing includes cycles spent on internal
// register work (16-bit ALU, conditional branch timing, push/pop).
func (b *Bus) TickOnly() { b.stepMachineCycle() }

// readForDMA reads a byte for the OAM-DMA/HDMA engines without
// consuming a machine cycle or going through DMA-conflict
// substitution; the transfer IS the access, not something racing it.
// The DMA's own source reads must bypass the conflict check below, or
// a transfer would perpetually see its own source address as "in
// conflict with itself" and substitute its own not-yet-read byte.
func (b *Bus) readForDMA(addr uint16) uint8 {
	return b.rawReadByte(addr)
}

func (b *Bus) readByte(addr uint16) uint8 {
	if b.dma.conflicts(addr, b.isCGB()) {
		return b.dma.currentByte(b)
	}
	return b.rawReadByte(addr)
}

func (b *Bus) rawReadByte(addr uint16) uint8 {
	switch {
	case b.bootEnabled && addr < 0x0100:
		return b.bootROM[addr]
	case b.bootEnabled && b.isCGB() && addr >= 0x0200 && addr < 0x0900 && len(b.bootROM) > 0x100:
		return b.bootROM[addr]
	case addr < 0x8000:
		return b.Cart.Read(addr)
	case addr < 0xA000:
		return b.PPU.ReadVRAM(addr - 0x8000)
	case addr < 0xC000:
		return b.Cart.Read(addr)
	case addr < 0xD000:
		return b.wram.readLow(addr)
	case addr < 0xE000:
		return b.wram.readHigh(addr)
	case addr < 0xFE00:
		return b.readEcho(addr)
	case addr < 0xFEA0:
		return b.PPU.ReadOAM(addr)
	case addr < 0xFF00:
		return 0x00
	case addr < 0xFF80:
		return b.readIO(addr)
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]
	default:
		return b.IRQ.ReadIE()
	}
}

func (b *Bus) readEcho(addr uint16) uint8 {
	mapped := addr - 0x2000
	if mapped < 0xD000 {
		return b.wram.readLow(mapped)
	}
	return b.wram.readHigh(mapped)
}

func (b *Bus) writeByte(addr uint16, v uint8) {
	if b.dma.conflicts(addr, b.isCGB()) {
		return
	}
	switch {
	case addr < 0x8000:
		b.Cart.Write(addr, v)
	case addr < 0xA000:
		b.PPU.WriteVRAM(addr-0x8000, v)
	case addr < 0xC000:
		b.Cart.Write(addr, v)
	case addr < 0xD000:
		b.wram.writeLow(addr, v)
	case addr < 0xE000:
		b.wram.writeHigh(addr, v)
	case addr < 0xFE00:
		b.writeEcho(addr, v)
	case addr < 0xFEA0:
		b.PPU.WriteOAM(addr, v)
	case addr < 0xFF00:
		// unused, writes dropped
	case addr < 0xFF80:
		b.writeIO(addr, v)
	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = v
	default:
		b.IRQ.WriteIE(v)
	}
}

func (b *Bus) writeEcho(addr uint16, v uint8) {
	mapped := addr - 0x2000
	if mapped < 0xD000 {
		b.wram.writeLow(mapped, v)
	} else {
		b.wram.writeHigh(mapped, v)
	}
}

func (b *Bus) readIO(addr uint16) uint8 {
	switch addr {
	case types.P1:
		return b.Joypad.Read()
	case types.SB:
		return b.Serial.ReadSB()
	case types.SC:
		return b.Serial.ReadSC()
	case types.DIV:
		return b.Timer.ReadDIV()
	case types.TIMA:
		return b.Timer.ReadTIMA()
	case types.TMA:
		return b.Timer.ReadTMA()
	case types.TAC:
		return b.Timer.ReadTAC()
	case types.IF:
		return b.IRQ.ReadIF()
	case types.DMA:
		return b.lastDMAValue
	case types.KEY1:
		return b.readKEY1()
	case types.BDIS:
		if b.bootEnabled {
			return 0x00
		}
		return 0x01
	case types.HDMA5:
		return b.hdma.readHDMA5()
	case types.RP:
		return b.rp
	case types.SVBK:
		if b.isCGB() {
			return b.wram.readSVBK()
		}
		return 0xFF
	case types.PCM12, types.PCM34:
		return b.APU.Read(addr)
	}
	switch {
	case addr >= types.NR10 && addr <= types.NR52:
		return b.APU.Read(addr)
	case addr >= types.WaveRAMStart && addr <= types.WaveRAMEnd:
		return b.APU.Read(addr)
	case addr >= types.LCDC && addr <= types.WX, addr == types.VBK,
		addr == types.BCPS, addr == types.BCPD, addr == types.OCPS, addr == types.OCPD,
		addr == types.OPRI:
		return b.PPU.ReadRegister(addr)
	case addr >= 0xFF72 && addr <= 0xFF75:
		return b.readUnknownReg(addr)
	}
	return 0xFF
}

func (b *Bus) writeIO(addr uint16, v uint8) {
	switch addr {
	case types.P1:
		b.Joypad.Write(v)
		return
	case types.SB:
		b.Serial.WriteSB(v)
		return
	case types.SC:
		b.Serial.WriteSC(v)
		return
	case types.DIV:
		b.Timer.WriteDIV()
		return
	case types.TIMA:
		b.Timer.WriteTIMA(v)
		return
	case types.TMA:
		b.Timer.WriteTMA(v)
		return
	case types.TAC:
		b.Timer.WriteTAC(v)
		return
	case types.IF:
		b.IRQ.WriteIF(v)
		return
	case types.DMA:
		b.lastDMAValue = v
		b.dma.start(v)
		return
	case types.KEY1:
		b.armSpeedSwitch(v&0x01 != 0)
		return
	case types.BDIS:
		if v != 0 {
			b.bootEnabled = false
		}
		return
	case types.HDMA1:
		b.hdma.writeHDMA1(v)
		return
	case types.HDMA2:
		b.hdma.writeHDMA2(v)
		return
	case types.HDMA3:
		b.hdma.writeHDMA3(v)
		return
	case types.HDMA4:
		b.hdma.writeHDMA4(v)
		return
	case types.HDMA5:
		b.hdma.writeHDMA5(v, b)
		return
	case types.RP:
		b.rp = v
		return
	case types.SVBK:
		if b.isCGB() {
			b.wram.writeSVBK(v)
		}
		return
	}
	switch {
	case addr >= types.NR10 && addr <= types.NR52:
		b.APU.Write(addr, v)
		return
	case addr >= types.WaveRAMStart && addr <= types.WaveRAMEnd:
		b.APU.Write(addr, v)
		return
	case addr >= types.LCDC && addr <= types.WX, addr == types.VBK,
		addr == types.BCPS, addr == types.BCPD, addr == types.OCPS, addr == types.OCPD,
		addr == types.OPRI:
		b.PPU.WriteRegister(addr, v)
		return
	case addr >= 0xFF72 && addr <= 0xFF75:
		b.writeUnknownReg(addr, v)
		return
	}
}

func (b *Bus) readKEY1() uint8 {
	v := uint8(0x7E)
	if b.doubleSpeed {
		v |= 0x80
	}
	if b.speedSwitchArmed {
		v |= 0x01
	}
	return v
}

// readUnknownReg/writeUnknownReg model the four undocumented CGB
// scratch registers (0xFF72-0xFF75): plain read/write bytes on CGB,
// with FF75 only exposing bits 4-6 for write and the rest fixed high.
func (b *Bus) readUnknownReg(addr uint16) uint8 {
	if !b.isCGB() {
		return 0xFF
	}
	idx := addr - 0xFF72
	if addr == 0xFF75 {
		return b.unknownRegs[idx] | 0x8F
	}
	return b.unknownRegs[idx]
}

func (b *Bus) writeUnknownReg(addr uint16, v uint8) {
	if !b.isCGB() {
		return
	}
	idx := addr - 0xFF72
	if addr == 0xFF75 {
		b.unknownRegs[idx] = v & 0x70
		return
	}
	b.unknownRegs[idx] = v
}

// stepMachineCycle advances every peripheral by one CPU machine cycle.
// Base-rate peripherals (cartridge mapper, PPU, APU, HDMA mode-change
// polling) tick 4 times per cycle at normal speed, 2 at double speed;
// the APU is fed the divider value from before this cycle's timer
// tick. CPU-synchronous peripherals (timer, serial, OAM-DMA) tick once
// per CPU machine cycle at either speed, so in double speed they run
// at twice the base rate; each timer Tick advances the divider by 4.
func (b *Bus) stepMachineCycle() {
	baseN := 4
	if b.doubleSpeed {
		baseN = 2
	}
	for i := 0; i < baseN; i++ {
		b.Cart.Tick()
		b.PPU.Tick()
		b.APU.Tick(b.Timer.DivValue(), b.doubleSpeed)
		b.elapsedCycles++
		b.hdma.onPPUModeChange(b, int(b.PPU.Mode()))
	}

	preDiv := b.Timer.DivValue()
	b.Timer.Tick()
	b.Serial.Tick(preDiv, b.doubleSpeed)
	b.dma.step(b)
}

var _ types.Stater = (*Bus)(nil)

func (b *Bus) Save(s *types.State) {
	s.Write8(uint8(b.model))
	b.Cart.Save(s)
	b.PPU.Save(s)
	b.APU.Save(s)
	b.Timer.Save(s)
	b.Joypad.Save(s)
	b.Serial.Save(s)
	b.IRQ.Save(s)
	b.wram.save(s)
	s.WriteData(b.hram[:])
	s.WriteBool(b.bootEnabled)
	b.dma.save(s)
	b.hdma.save(s)
	s.WriteBool(b.doubleSpeed)
	s.WriteBool(b.speedSwitchArmed)
	s.Write8(b.lastDMAValue)
	s.Write8(b.rp)
	s.WriteData(b.unknownRegs[:])
}

func (b *Bus) Load(s *types.State) {
	b.model = types.Model(s.Read8())
	b.Cart.Load(s)
	b.PPU.Load(s)
	b.APU.Load(s)
	b.Timer.Load(s)
	b.Joypad.Load(s)
	b.Serial.Load(s)
	b.IRQ.Load(s)
	b.wram.load(s)
	s.ReadData(b.hram[:])
	b.bootEnabled = s.ReadBool()
	b.dma.load(s)
	b.hdma.load(s)
	b.doubleSpeed = s.ReadBool()
	b.speedSwitchArmed = s.ReadBool()
	b.lastDMAValue = s.Read8()
	b.rp = s.Read8()
	s.ReadData(b.unknownRegs[:])
}
