package gameboy

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
	"github.com/haldane-systems/gbcore/internal/types"
)

// Save-state stream layout: 4-byte magic, 1-byte version, 8-byte
// little-endian xxhash of the cartridge ROM, then the component
// snapshot produced by Save. Tagging with the cartridge hash is what
// lets Load reject a state recorded against a different game instead
// of silently corrupting itself.
var saveMagic = [4]byte{'G', 'B', 'S', 'V'}

const saveVersion uint8 = 1

// Save writes a versioned, cartridge-hash-tagged snapshot of every
// component sufficient to resume bit-exact. It never fails.
func (gb *Engine) Save() []byte {
	s := types.NewState()
	s.WriteData(saveMagic[:])
	s.Write8(saveVersion)
	s.Write64(xxhash.Sum64(gb.bus.Cart.ROM))
	gb.bus.Save(s)
	gb.cpu.Save(s)
	return s.Bytes()
}

// Load restores a snapshot previously produced by Save on this same
// cartridge. On any failure the engine's state is left exactly as it
// was before the call: a truncated or corrupt stream can panic deep
// inside the component Load calls (out-of-range slice reads), so a
// rollback snapshot is taken up front and restored if that happens.
func (gb *Engine) Load(data []byte) (err error) {
	if len(data) < 4+1+8 {
		return newSaveError(ErrDeserialize)
	}
	if data[0] != saveMagic[0] || data[1] != saveMagic[1] || data[2] != saveMagic[2] || data[3] != saveMagic[3] {
		return newSaveError(ErrBadMagic)
	}
	if data[4] != saveVersion {
		return newSaveError(ErrBadVersion)
	}
	wantHash := binary.LittleEndian.Uint64(data[5:13])
	if wantHash != xxhash.Sum64(gb.bus.Cart.ROM) {
		return newSaveError(ErrCartridgeHashMismatch)
	}

	rollback := types.NewState()
	gb.bus.Save(rollback)
	gb.cpu.Save(rollback)

	defer func() {
		if r := recover(); r != nil {
			rs := types.StateFromBytes(rollback.Bytes())
			gb.bus.Load(rs)
			gb.cpu.Load(rs)
			err = newSaveError(ErrDeserialize)
		}
	}()

	s := types.StateFromBytes(data[13:])
	gb.bus.Load(s)
	gb.cpu.Load(s)
	return nil
}
