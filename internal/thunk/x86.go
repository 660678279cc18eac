// Package thunk encodes the small branch sequences the inline patcher and
// trampoline builder stitch together: relative jumps and calls that fit
// x86 and x86-64 alike, plus the absolute forms x86-64 needs when a
// destination falls outside rel32 reach.
package thunk

import (
	"encoding/binary"
	"fmt"

	"github.com/xyproto/detour/internal/pic"
)

// JmpRel32 builds a 5-byte E9 jmp to dest: "E9 disp32".
func JmpRel32(dest uintptr) pic.Thunkable {
	return relative32(0xE9, dest)
}

// CallRel32 builds a 5-byte E8 call to dest: "E8 disp32".
func CallRel32(dest uintptr) pic.Thunkable {
	return relative32(0xE8, dest)
}

func relative32(opcode byte, dest uintptr) pic.Thunkable {
	const size = 5
	return pic.NewDynamic(size, func(base uintptr) []byte {
		disp := int64(dest) - int64(base+size)
		if disp > 0x7fffffff || disp < -0x80000000 {
			panic(fmt.Sprintf("thunk: rel32 displacement %#x out of signed 32-bit range", disp))
		}
		out := make([]byte, size)
		out[0] = opcode
		binary.LittleEndian.PutUint32(out[1:], uint32(int32(disp)))
		return out
	})
}

// JccRel32 builds a 6-byte "0F 8<cond> disp32" conditional jump to dest.
// cond is the low nibble of the Jcc opcode (0x0 JO ... 0xF JG).
func JccRel32(dest uintptr, cond byte) pic.Thunkable {
	const size = 6
	return pic.NewDynamic(size, func(base uintptr) []byte {
		disp := int64(dest) - int64(base+size)
		if disp > 0x7fffffff || disp < -0x80000000 {
			panic(fmt.Sprintf("thunk: jcc rel32 displacement %#x out of signed 32-bit range", disp))
		}
		out := make([]byte, size)
		out[0] = 0x0F
		out[1] = 0x80 | (cond & 0x0F)
		binary.LittleEndian.PutUint32(out[2:], uint32(int32(disp)))
		return out
	})
}

// JmpRel8 builds a 2-byte "EB imm8" short jump. disp is the desired
// displacement measured from the instruction's own start; the encoder
// subtracts the instruction's 2-byte length to get the end-relative imm8.
func JmpRel8(disp int8) pic.Thunkable {
	const size = 2
	return pic.NewDynamic(size, func(_ uintptr) []byte {
		return []byte{0xEB, byte(disp - size)}
	})
}

// Nop returns n single-byte 0x90 NOP instructions as one thunk.
func Nop(n int) pic.Thunkable {
	return pic.Static(bytesRepeat(0x90, n))
}

func bytesRepeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
