// Package ppu implements the pixel-FIFO picture processing unit
// shared by DMG and CGB: scanline/mode state machine, OAM scan,
// background/window/sprite compositing, CGB palette memory, and the
// DMG OAM-bug corruption hazards.
package ppu

import (
	"sort"

	"github.com/haldane-systems/gbcore/internal/interrupts"
	"github.com/haldane-systems/gbcore/internal/log"
	"github.com/haldane-systems/gbcore/internal/types"
)

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	cyclesPerLine = 456
	linesPerFrame = 154
)

// Mode is one of the four PPU states.
type Mode uint8

const (
	HBlank Mode = iota
	VBlank
	OAMScan
	Drawing
)

// PPU owns VRAM, OAM, and every LCD-related register.
type PPU struct {
	model types.Model
	irq   interrupts.Sink
	log   log.Logger

	vram     [2][8192]byte
	vramBank uint8
	oam      oam

	lcdc, stat, scy, scx, ly, lyc, wy, wx uint8

	bgp, obp0, obp1      dmgPalette
	bgPalette, objPal    cgbPalette
	oprCoordinatePriority bool // OPRI bit0

	cycle uint16 // 0..455 within the current scanline

	statIRQLine bool // previous value of the STAT interrupt OR-line, for edge detection

	// mode-3 pixel pipeline state
	bgFifo          bgFIFO
	sprites         spriteLine
	pending         []oamEntry
	fetchCounter    uint8
	fetcherTileX    uint8
	windowFetcherX  uint8
	discardRemain   uint8
	lcdX            uint8
	windowActive    bool
	windowTriggered bool // latched once WY==LY for the frame
	windowLine      uint8
	oamLockExtra    uint8 // dots after mode 3 ends that OAM stays locked

	front, back [ScreenHeight][ScreenWidth][3]uint8
	frameReady  bool
}

// New returns a PPU with the documented post-boot register values for
// the given model, matching a cartridge booted without a boot ROM.
func New(model types.Model, irq interrupts.Sink, logger log.Logger) *PPU {
	if logger == nil {
		logger = log.Nop()
	}
	p := &PPU{
		model: model,
		irq:   irq,
		log:   logger,
		lcdc:  0x91,
		bgp:   dmgPalette{raw: 0xFC},
		obp0:  dmgPalette{raw: 0xFF},
		obp1:  dmgPalette{raw: 0xFF},
	}
	return p
}

func (p *PPU) isColor() bool { return p.model == types.ModelCGB }

// --- LCDC/STAT bit accessors ---

func (p *PPU) lcdEnabled() bool      { return p.lcdc&0x80 != 0 }
func (p *PPU) windowMapHigh() bool   { return p.lcdc&0x40 != 0 }
func (p *PPU) windowEnabled() bool   { return p.lcdc&0x20 != 0 }
func (p *PPU) tileDataLow() bool     { return p.lcdc&0x10 != 0 } // true: 0x8000 unsigned
func (p *PPU) bgMapHigh() bool       { return p.lcdc&0x08 != 0 }
func (p *PPU) tallSprites() bool     { return p.lcdc&0x04 != 0 }
func (p *PPU) spritesEnabled() bool  { return p.lcdc&0x02 != 0 }
func (p *PPU) bgWindowEnabled() bool { return p.lcdc&0x01 != 0 }

func (p *PPU) mode() Mode { return Mode(p.stat & 0x03) }

// Mode returns the PPU's current mode, queried by the bus to drive
// HDMA's H-blank-triggered chunk copies.
func (p *PPU) Mode() Mode { return p.mode() }

func (p *PPU) setMode(m Mode) {
	p.stat = p.stat&0xFC | uint8(m)
}

// OAMLocked reports whether the bus must treat OAM as inaccessible to
// the CPU (mode 2, mode 3, or the brief window after mode 3 ends).
func (p *PPU) OAMLocked() bool {
	if !p.lcdEnabled() {
		return false
	}
	m := p.mode()
	return m == OAMScan || m == Drawing || p.oamLockExtra > 0
}

// VRAMLocked reports whether the bus must treat VRAM as inaccessible
// to the CPU (mode 3 only).
func (p *PPU) VRAMLocked() bool {
	return p.lcdEnabled() && p.mode() == Drawing
}

// --- register I/O ---

func (p *PPU) ReadRegister(addr types.HardwareAddress) uint8 {
	switch addr {
	case types.LCDC:
		return p.lcdc
	case types.STAT:
		v := p.stat | 0x80
		if p.ly == p.lyc {
			v |= 0x04
		}
		return v
	case types.SCY:
		return p.scy
	case types.SCX:
		return p.scx
	case types.LY:
		return p.ly
	case types.LYC:
		return p.lyc
	case types.BGP:
		return p.bgp.read()
	case types.OBP0:
		return p.obp0.read()
	case types.OBP1:
		return p.obp1.read()
	case types.WY:
		return p.wy
	case types.WX:
		return p.wx
	case types.VBK:
		if !p.isColor() {
			return 0xFF
		}
		return p.vramBank | 0xFE
	case types.BCPS:
		return p.bgPalette.readIndex()
	case types.BCPD:
		return p.bgPalette.readData()
	case types.OCPS:
		return p.objPal.readIndex()
	case types.OCPD:
		return p.objPal.readData()
	case types.OPRI:
		if p.oprCoordinatePriority {
			return 0x01
		}
		return 0x00
	}
	return 0xFF
}

func (p *PPU) WriteRegister(addr types.HardwareAddress, v uint8) {
	switch addr {
	case types.LCDC:
		wasOn := p.lcdEnabled()
		p.lcdc = v
		if wasOn && !p.lcdEnabled() {
			p.disableLCD()
		} else if !wasOn && p.lcdEnabled() {
			p.enableLCD()
		}
	case types.STAT:
		p.stat = p.stat&0x07 | v&0x78
	case types.SCY:
		p.scy = v
	case types.SCX:
		p.scx = v
	case types.LY:
		// read-only
	case types.LYC:
		p.lyc = v
	case types.BGP:
		p.bgp.write(v)
	case types.OBP0:
		p.obp0.write(v)
	case types.OBP1:
		p.obp1.write(v)
	case types.WY:
		p.wy = v
	case types.WX:
		p.wx = v
	case types.VBK:
		if p.isColor() {
			p.vramBank = v & 0x01
		}
	case types.BCPS:
		p.bgPalette.writeIndex(v)
	case types.BCPD:
		if p.mode() != Drawing {
			p.bgPalette.writeData(v)
		}
	case types.OCPS:
		p.objPal.writeIndex(v)
	case types.OCPD:
		if p.mode() != Drawing {
			p.objPal.writeData(v)
		}
	case types.OPRI:
		p.oprCoordinatePriority = v&0x01 != 0
	}
}

func (p *PPU) disableLCD() {
	if p.mode() != VBlank {
		p.log.Warnf("ppu: LCD disabled outside VBlank")
	}
	p.back = [ScreenHeight][ScreenWidth][3]uint8{}
	p.front = p.back
	p.frameReady = true
	p.ly = 0
	p.cycle = 0
	p.setMode(HBlank)
}

func (p *PPU) enableLCD() {
	p.cycle = 4
	p.setMode(OAMScan)
}

// ReadVRAM and WriteVRAM are address-relative to 0x8000 and already
// bank-selected by the caller's current VBK value.
func (p *PPU) ReadVRAM(addr uint16) uint8 {
	if p.VRAMLocked() {
		return 0xFF
	}
	return p.vram[p.vramBank][addr&0x1FFF]
}

func (p *PPU) WriteVRAM(addr uint16, v uint8) {
	if p.VRAMLocked() {
		return
	}
	p.vram[p.vramBank][addr&0x1FFF] = v
}

func (p *PPU) ReadOAM(addr uint16) uint8 {
	if p.OAMLocked() {
		return 0xFF
	}
	return p.oam.read(addr)
}

func (p *PPU) WriteOAM(addr uint16, v uint8) {
	if p.OAMLocked() {
		return
	}
	p.oam.write(addr, v)
}

// WriteOAMDMA bypasses the lock, matching the documented DMA
// behavior.
func (p *PPU) WriteOAMDMA(addr uint16, v uint8) { p.oam.write(addr, v) }

// --- frame stepping ---

// Tick advances the PPU by one base-rate T-cycle.
func (p *PPU) Tick() {
	if !p.lcdEnabled() {
		return
	}
	p.cycle++
	if p.oamLockExtra > 0 {
		p.oamLockExtra--
	}

	// Line 144 lingers in mode 0 for 4 dots before the mode-1 switch
	// and the VBlank interrupt request; real hardware does not flip
	// either at the line boundary.
	if p.ly == 144 && p.mode() == HBlank && p.cycle == 4 {
		p.setMode(VBlank)
		p.irq.Request(interrupts.VBlank)
		p.windowTriggered = false
		p.windowLine = 0
	}

	switch p.mode() {
	case OAMScan:
		if p.cycle == 80 {
			p.enterDrawing()
		}
	case Drawing:
		p.stepPixelPipeline()
	case HBlank:
		if p.cycle >= cyclesPerLine {
			p.endLine()
		}
	case VBlank:
		if p.cycle >= cyclesPerLine {
			p.endLine()
		}
	}
	p.updateStatLine()
}

func (p *PPU) enterDrawing() {
	p.setMode(Drawing)
	p.bgFifo.clear()
	p.sprites.clear()
	p.fetchCounter = 8
	p.fetcherTileX = 0
	p.windowFetcherX = 0
	p.discardRemain = p.scx % 8
	p.lcdX = 0
	p.windowActive = false

	tall := p.tallSprites()
	entries := p.oam.scan(p.ly, tall)
	if !p.isColor() || p.oprCoordinatePriority {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].attr.x < entries[j].attr.x })
	}
	p.pending = entries
}

func (p *PPU) endLine() {
	if p.windowActive {
		p.windowLine++
	}
	p.cycle = 0
	p.ly++
	if p.ly >= linesPerFrame {
		p.ly = 0
		p.front, p.back = p.back, p.front
		p.frameReady = true
		p.setMode(OAMScan)
	} else if p.ly == 144 {
		// mode 0 holds for 4 more dots; Tick flips to mode 1 and
		// requests the interrupt at cycle 4 of this line.
	} else if p.mode() == VBlank {
		// still in vblank, nothing to do
	} else {
		p.setMode(OAMScan)
	}
}

// updateStatLine recomputes the STAT interrupt OR-line (coincidence
// plus the three mode sources) and requests LCDStat on its rising
// edge; the coincidence flag itself is computed on read in
// ReadRegister rather than latched.
func (p *PPU) updateStatLine() {
	line := false
	if p.ly == p.lyc && p.stat&0x40 != 0 {
		line = true
	}
	switch p.mode() {
	case HBlank:
		if p.stat&0x08 != 0 {
			line = true
		}
	case VBlank:
		if p.stat&0x10 != 0 {
			line = true
		}
	case OAMScan:
		if p.stat&0x20 != 0 {
			line = true
		}
	}
	if line && !p.statIRQLine {
		p.irq.Request(interrupts.LCDStat)
	}
	p.statIRQLine = line
}

// stepPixelPipeline runs one T-cycle of the mode-3 fetch/FIFO/output
// machinery.
func (p *PPU) stepPixelPipeline() {
	p.tryWindowTrigger()
	p.injectSprites()

	if p.discardRemain > 0 {
		if p.bgFifo.len > 8 {
			p.bgFifo.pop()
			p.discardRemain--
		}
	} else if p.bgFifo.len > 8 {
		bg := p.bgFifo.pop()
		p.outputPixel(bg)
		p.lcdX++
		if p.lcdX >= ScreenWidth {
			p.setMode(HBlank)
			p.oamLockExtra = 8
			return
		}
	}

	if p.fetchCounter > 0 {
		p.fetchCounter--
	}
	if p.fetchCounter == 0 && p.bgFifo.len <= 8 {
		p.bgFifo.push8(p.fetchTileRow())
		p.fetchCounter = 8
		if p.windowActive {
			p.windowFetcherX++
		} else {
			p.fetcherTileX++
		}
	}
}

func (p *PPU) tryWindowTrigger() {
	if p.windowActive || !p.windowEnabled() || !p.bgWindowEnabled() {
		return
	}
	if p.ly == p.wy {
		p.windowTriggered = true
	}
	if !p.windowTriggered {
		return
	}
	if int(p.lcdX)+7 < int(p.wx) {
		return
	}
	p.windowActive = true
	p.windowFetcherX = 0
	p.bgFifo.clear()
	p.fetchCounter = 8
}

func (p *PPU) injectSprites() {
	if !p.spritesEnabled() {
		return
	}
	cgbPriority := p.isColor() && !p.oprCoordinatePriority
	for len(p.pending) > 0 {
		s := p.pending[0]
		screenX := int(s.attr.x) - 8
		if screenX > int(p.lcdX) {
			break
		}
		p.pending = p.pending[1:]
		row := p.spriteRow(s)
		p.sprites.inject(screenX+8, row, cgbPriority)
	}
}

func (p *PPU) spriteRow(s oamEntry) [8]sprPixel {
	height := uint8(8)
	tile := s.attr.tile
	if p.tallSprites() {
		height = 16
		tile &^= 0x01
	}
	line := p.ly - (s.attr.y - 16)
	if s.attr.flipY() {
		line = height - 1 - line
	}
	bank := uint8(0)
	if p.isColor() {
		bank = s.attr.vramBank()
	}
	addr := uint16(tile)*16 + uint16(line)*2
	lo := p.vram[bank][addr&0x1FFF]
	hi := p.vram[bank][(addr+1)&0x1FFF]

	var out [8]sprPixel
	for x := uint8(0); x < 8; x++ {
		bit := 7 - x
		if s.attr.flipX() {
			bit = x
		}
		color := (hi>>bit)&0x01<<1 | (lo>>bit)&0x01
		if color == 0 {
			continue
		}
		out[x] = sprPixel{
			valid:      true,
			color:      color,
			palette:    p.spritePaletteNumber(s.attr),
			bank:       bank,
			bgPriority: s.attr.priority(),
			oamIndex:   s.index,
		}
	}
	return out
}

func (p *PPU) spritePaletteNumber(a spriteAttr) uint8 {
	if p.isColor() {
		return a.cgbPalette()
	}
	return a.dmgPalette()
}

func (p *PPU) fetchTileRow() [8]bgPixel {
	var mapBase uint16 = 0x9800
	var mapRow, tileCol, lineInTile uint8
	if p.windowActive {
		if p.windowMapHigh() {
			mapBase = 0x9C00
		}
		mapRow = p.windowLine / 8
		tileCol = p.windowFetcherX % 32
		lineInTile = p.windowLine % 8
	} else {
		if p.bgMapHigh() {
			mapBase = 0x9C00
		}
		mapRow = (p.scy + p.ly) / 8
		tileCol = (p.scx/8 + p.fetcherTileX) % 32
		lineInTile = (p.scy + p.ly) % 8
	}

	mapAddr := mapBase + uint16(mapRow)*32 + uint16(tileCol)
	tileID := p.vram[0][mapAddr&0x1FFF]

	var attr uint8
	if p.isColor() {
		attr = p.vram[1][mapAddr&0x1FFF]
	}
	bgPriority := attr&0x80 != 0
	flipY := attr&0x40 != 0
	flipX := attr&0x20 != 0
	bank := (attr >> 3) & 0x01
	cgbPal := attr & 0x07

	fine := lineInTile
	if flipY {
		fine = 7 - fine
	}

	var dataAddr uint16
	if p.tileDataLow() {
		dataAddr = 0x8000 + uint16(tileID)*16
	} else {
		dataAddr = uint16(int32(0x9000) + int32(int8(tileID))*16)
	}
	dataAddr += uint16(fine) * 2
	lo := p.vram[bank][dataAddr&0x1FFF]
	hi := p.vram[bank][(dataAddr+1)&0x1FFF]

	var out [8]bgPixel
	for x := uint8(0); x < 8; x++ {
		bit := 7 - x
		if flipX {
			bit = x
		}
		color := (hi>>bit)&0x01<<1 | (lo>>bit)&0x01
		if !p.bgWindowEnabled() && !p.isColor() {
			color = 0
		}
		out[x] = bgPixel{color: color, cgbPalette: cgbPal, bank: bank, bgPriority: bgPriority}
	}
	return out
}

func (p *PPU) outputPixel(bg bgPixel) {
	spr := p.sprites.at(p.lcdX)

	spriteWins := false
	if spr.valid && p.spritesEnabled() {
		switch {
		case !p.isColor():
			spriteWins = !(spr.bgPriority && bg.color != 0)
		case !p.bgWindowEnabled():
			spriteWins = true
		case bg.color == 0:
			spriteWins = true
		case !bg.bgPriority && !spr.bgPriority:
			spriteWins = true
		default:
			spriteWins = false
		}
	}

	var r, g, b uint8
	if spriteWins {
		if p.isColor() {
			r, g, b = p.objPal.rgb888(spr.palette, spr.color)
		} else {
			shade := p.paletteFor(spr.palette, true).shade(spr.color)
			c := grayscalePalette[shade]
			r, g, b = c[0], c[1], c[2]
		}
	} else {
		if p.isColor() {
			r, g, b = p.bgPalette.rgb888(bg.cgbPalette, bg.color)
		} else {
			shade := p.bgp.shade(bg.color)
			c := grayscalePalette[shade]
			r, g, b = c[0], c[1], c[2]
		}
	}
	p.back[p.ly][p.lcdX] = [3]uint8{r, g, b}
}

func (p *PPU) paletteFor(index uint8, sprite bool) *dmgPalette {
	if !sprite {
		return &p.bgp
	}
	if index == 0 {
		return &p.obp0
	}
	return &p.obp1
}

// HasFrame reports whether a new completed frame is available.
func (p *PPU) HasFrame() bool { return p.frameReady }

// ClearRefresh acknowledges the current frame.
func (p *PPU) ClearRefresh() { p.frameReady = false }

// ScreenBuffer returns the most recently completed 160x144 RGB frame.
func (p *PPU) ScreenBuffer() *[ScreenHeight][ScreenWidth][3]uint8 { return &p.front }

var _ types.Stater = (*PPU)(nil)

func (p *PPU) Save(s *types.State) {
	s.Write8(uint8(p.model))
	s.WriteData(p.vram[0][:])
	s.WriteData(p.vram[1][:])
	s.Write8(p.vramBank)
	p.oam.save(s)
	s.Write8(p.lcdc)
	s.Write8(p.stat)
	s.Write8(p.scy)
	s.Write8(p.scx)
	s.Write8(p.ly)
	s.Write8(p.lyc)
	s.Write8(p.wy)
	s.Write8(p.wx)
	s.Write8(p.bgp.raw)
	s.Write8(p.obp0.raw)
	s.Write8(p.obp1.raw)
	p.bgPalette.save(s)
	p.objPal.save(s)
	s.WriteBool(p.oprCoordinatePriority)
	s.Write16(p.cycle)
	s.WriteBool(p.statIRQLine)
	s.WriteBool(p.windowTriggered)
	s.Write8(p.windowLine)
	s.Write8(p.oamLockExtra)
	s.WriteBool(p.frameReady)
}

func (p *PPU) Load(s *types.State) {
	p.model = types.Model(s.Read8())
	s.ReadData(p.vram[0][:])
	s.ReadData(p.vram[1][:])
	p.vramBank = s.Read8()
	p.oam.load(s)
	p.lcdc = s.Read8()
	p.stat = s.Read8()
	p.scy = s.Read8()
	p.scx = s.Read8()
	p.ly = s.Read8()
	p.lyc = s.Read8()
	p.wy = s.Read8()
	p.wx = s.Read8()
	p.bgp.raw = s.Read8()
	p.obp0.raw = s.Read8()
	p.obp1.raw = s.Read8()
	p.bgPalette.load(s)
	p.objPal.load(s)
	p.oprCoordinatePriority = s.ReadBool()
	p.cycle = s.Read16()
	p.statIRQLine = s.ReadBool()
	p.windowTriggered = s.ReadBool()
	p.windowLine = s.Read8()
	p.oamLockExtra = s.Read8()
	p.frameReady = s.ReadBool()
}
