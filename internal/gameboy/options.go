package gameboy

import "github.com/haldane-systems/gbcore/internal/log"

// Config is the fixed construction-time configuration: which model to
// boot as and, optionally, a real boot ROM image and a logger.
// Everything else an Opt can reach is mutated after construction.
type Config struct {
	IsDMG   bool
	BootROM []byte
	Logger  log.Logger
}

// Opt is a function that modifies an Engine after its peripherals
// have been wired together, mirroring the teacher's functional-option
// construction contract.
type Opt func(gb *Engine)

// WithLogger replaces the engine's own logger. The bus and PPU keep
// the logger they were constructed with (Config.Logger, or a no-op
// logger when that is nil).
func WithLogger(l log.Logger) Opt {
	return func(gb *Engine) { gb.log = l }
}

// Debug enables the LD B,B software breakpoint convention.
func Debug() Opt {
	return func(gb *Engine) { gb.cpu.Debug = true }
}
