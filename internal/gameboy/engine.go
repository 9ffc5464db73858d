// Package gameboy assembles the bus and CPU into the frame-paced
// engine a host drives: feed it a cartridge image, call ClockForFrame
// once per video frame, and read back the screen and audio buffers.
package gameboy

import (
	"github.com/haldane-systems/gbcore/internal/bus"
	"github.com/haldane-systems/gbcore/internal/cartridge"
	"github.com/haldane-systems/gbcore/internal/cpu"
	"github.com/haldane-systems/gbcore/internal/joypad"
	"github.com/haldane-systems/gbcore/internal/log"
	"github.com/haldane-systems/gbcore/internal/ppu"
	"github.com/haldane-systems/gbcore/internal/serial"
	"github.com/haldane-systems/gbcore/internal/types"
)

// cyclesPerFrame is 456 T-cycles/scanline * 154 scanlines.
const cyclesPerFrame = 456 * 154

// Engine owns one console: its cartridge, bus, and CPU.
type Engine struct {
	bus *bus.Bus
	cpu *cpu.CPU
	log log.Logger

	model types.Model
}

// New loads romBytes as a cartridge and constructs an Engine around
// it. cfg.BootROM, if non-nil, must be 256 bytes (DMG) or 2304 bytes
// (CGB) long; a mismatched length is a construction error, as is any
// failure cartridge.New reports parsing the header.
func New(romBytes []byte, cfg Config, opts ...Opt) (*Engine, error) {
	cart, err := cartridge.New(romBytes)
	if err != nil {
		return nil, err
	}

	model := types.ModelCGB
	if cfg.IsDMG {
		model = types.ModelDMG
	}

	if cfg.BootROM != nil {
		want := 256
		if model == types.ModelCGB {
			want = 2304
		}
		if len(cfg.BootROM) != want {
			return nil, &cartridge.Error{Kind: cartridge.ErrInvalidROMSize, Detail: "boot ROM length does not match model"}
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}

	b := bus.New(model, cart, cfg.BootROM, logger)
	gb := &Engine{
		bus:   b,
		cpu:   cpu.New(b, model),
		log:   logger,
		model: model,
	}

	for _, o := range opts {
		o(gb)
	}
	return gb, nil
}

// Title returns the cartridge's header title, a supplemental accessor
// not present in the distilled interface but cheap and fully in scope.
func (gb *Engine) Title() string { return gb.bus.Cart.Header.Title }

// ClockForFrame steps the CPU until the PPU has emitted a full
// 70224-T-cycle frame since the last call (or since construction).
func (gb *Engine) ClockForFrame() {
	var elapsed uint64
	for elapsed < cyclesPerFrame {
		gb.cpu.Step()
		elapsed += gb.bus.ElapsedCycles()
	}
}

// PressJoypad/ReleaseJoypad forward a button edge to the joypad,
// which raises the Joypad interrupt when a newly pressed button pulls
// a currently selected line low.
func (gb *Engine) PressJoypad(b joypad.Button)   { gb.bus.Joypad.Press(b) }
func (gb *Engine) ReleaseJoypad(b joypad.Button) { gb.bus.Joypad.Release(b) }

// ScreenBuffer returns the most recently completed frame as 160x144
// RGB triples.
func (gb *Engine) ScreenBuffer() *[ppu.ScreenHeight][ppu.ScreenWidth][3]uint8 {
	return gb.bus.PPU.ScreenBuffer()
}

// AudioBuffer returns and drains the accumulated 44.1 kHz stereo
// sample stream.
func (gb *Engine) AudioBuffer() []float32 { return gb.bus.APU.AudioBuffer() }

// ConnectDevice/DisconnectDevice wire or remove a serial peer.
func (gb *Engine) ConnectDevice(d serial.Device) { gb.bus.Serial.Connect(d) }
func (gb *Engine) DisconnectDevice()             { gb.bus.Serial.Disconnect() }

// DebugBreakpoint reports whether the CPU hit a LD B,B software
// breakpoint since the last check, and clears the flag.
func (gb *Engine) DebugBreakpoint() bool {
	hit := gb.cpu.DebugBreakpoint
	gb.cpu.DebugBreakpoint = false
	return hit
}

// BatteryRAM/LoadBatteryRAM and BatteryRTC/LoadBatteryRTC expose the
// cartridge's persistence hooks; the host, not the core, decides
// where the bytes live (§1's "out of scope: persistence... medium").
func (gb *Engine) BatteryRAM() []byte             { return gb.bus.Cart.BatteryRAM() }
func (gb *Engine) LoadBatteryRAM(data []byte)     { gb.bus.Cart.LoadBatteryRAM(data) }
func (gb *Engine) HasBattery() bool               { return gb.bus.Cart.HasBattery() }

func (gb *Engine) BatteryRTC() (seconds, minutes, hours uint8, days uint16, lastLatchUnix uint64, ok bool) {
	return gb.bus.Cart.BatteryRTC()
}

func (gb *Engine) LoadBatteryRTC(seconds, minutes, hours uint8, days uint16, lastLatchUnix uint64) {
	gb.bus.Cart.LoadBatteryRTC(seconds, minutes, hours, days, lastLatchUnix)
}
