//go:build 386

package prolog

import (
	"github.com/xyproto/detour/internal/pic"
	"github.com/xyproto/detour/internal/thunk"
)

// On x86 every branch out of the prolog stays in rel32 form; there is no
// absolute encoding shorter than redundantly pushing a return address.
func callThunk(dest uintptr) pic.Thunkable           { return thunk.CallRel32(dest) }
func jmpThunk(dest uintptr) pic.Thunkable            { return thunk.JmpRel32(dest) }
func jccThunk(dest uintptr, cond byte) pic.Thunkable { return thunk.JccRel32(dest, cond) }
