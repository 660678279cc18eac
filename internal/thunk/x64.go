package thunk

import (
	"encoding/binary"

	"github.com/xyproto/detour/internal/pic"
)

// JmpAbs builds a 14-byte x86-64 indirect jump through an inline pointer:
// "FF 25 00000000 <dest:u64>" — jmp qword ptr [rip+0].
func JmpAbs(dest uint64) pic.Thunkable {
	out := make([]byte, 14)
	out[0] = 0xFF
	out[1] = 0x25
	// bytes 2..6 stay zero: rip-relative displacement of 0, pointer follows immediately.
	binary.LittleEndian.PutUint64(out[6:], dest)
	return pic.Static(out)
}

// CallAbs builds a 16-byte x86-64 indirect call through an inline pointer:
// "FF 15 02000000 EB 08 <dest:u64>" — call qword ptr [rip+2], then a 2-byte
// forward jump skipping the 8-byte pointer word the call just read through.
func CallAbs(dest uint64) pic.Thunkable {
	out := make([]byte, 16)
	out[0] = 0xFF
	out[1] = 0x15
	binary.LittleEndian.PutUint32(out[2:6], 2)
	out[6] = 0xEB
	out[7] = 0x08
	binary.LittleEndian.PutUint64(out[8:], dest)
	return pic.Static(out)
}

// JccAbs builds a 16-byte x86-64 conditional branch to an absolute
// destination: a short jcc with the *inverted* condition skipping over a
// 14-byte JmpAbs. Taking the short branch means "do not take the original
// jcc"; falling through into the JmpAbs is the taken case.
func JccAbs(dest uint64, cond byte) pic.Thunkable {
	out := make([]byte, 16)
	out[0] = 0x71 ^ (cond & 0x0F)
	out[1] = 0x0E // skip the 14-byte jmp-abs that follows
	out[2] = 0xFF
	out[3] = 0x25
	binary.LittleEndian.PutUint64(out[8:], dest)
	return pic.Static(out)
}
