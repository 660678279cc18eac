//go:build amd64

package prolog

import (
	"github.com/xyproto/detour/internal/pic"
	"github.com/xyproto/detour/internal/thunk"
)

// On amd64 a branch leaving the prolog may need to reach anywhere in the
// address space, so the builder always emits the absolute forms; the
// façade's relay only matters for the final patch-site jump, not here.
func callThunk(dest uintptr) pic.Thunkable        { return thunk.CallAbs(uint64(dest)) }
func jmpThunk(dest uintptr) pic.Thunkable         { return thunk.JmpAbs(uint64(dest)) }
func jccThunk(dest uintptr, cond byte) pic.Thunkable { return thunk.JccAbs(uint64(dest), cond) }
