// Package patcher computes the patch area at a target's entry point and
// toggles it between its original bytes and a redirect to a detour.
package patcher

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/xyproto/detour/internal/memregion"
	"github.com/xyproto/detour/internal/pic"
	"github.com/xyproto/detour/internal/thunk"
)

// ErrNoPatchArea is returned when neither the direct nor the hot-patch
// policy can place a branch at the target.
var ErrNoPatchArea = errors.New("patcher: no usable patch area at target")

// paddingBytes is the set of byte values considered safe filler that a
// hot-patch area may consume immediately before a target's entry point.
var paddingBytes = map[byte]bool{0x00: true, 0x90: true, 0xCC: true}

// VerboseMode toggles one-line trace output to stderr as patch areas are
// chosen and toggled.
var VerboseMode = false

func trace(format string, args ...any) {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "patcher: "+format+"\n", args...)
	}
}

// Patcher owns the bytes that will be written over a target's entry point
// and the snapshot needed to restore it.
type Patcher struct {
	areaAddr uintptr
	original []byte
	redirect []byte
}

// New computes the patch area for target given prologSize bytes were
// consumed by the trampoline builder, and synthesizes the redirect bytes
// to detourAddr. readBefore must return len(n) bytes ending at target
// (i.e. the n bytes immediately preceding target), used only by the
// hot-patch padding check.
func New(target uintptr, prologSize int, detourAddr uintptr, readBefore func(n int) ([]byte, error)) (*Patcher, error) {
	jmp := thunk.JmpRel32(detourAddr)

	switch {
	case prologSize >= jmp.Len():
		original, err := snapshot(target, jmp.Len())
		if err != nil {
			return nil, err
		}
		redirect := jmp.Generate(target)
		trace("direct patch area [%#x, %#x)", target, target+uintptr(jmp.Len()))
		return &Patcher{areaAddr: target, original: original, redirect: redirect}, nil

	case prologSize >= 2:
		before, err := readBefore(5)
		if err != nil {
			return nil, fmt.Errorf("%w: reading hot-patch padding before %#x: %v", ErrNoPatchArea, target, err)
		}
		if !allPadding(before) {
			return nil, fmt.Errorf("%w: 5 bytes before %#x are not all padding", ErrNoPatchArea, target)
		}
		ok, err := memregion.IsExecutable(target - 5)
		if err != nil {
			return nil, fmt.Errorf("patcher: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: hot-patch padding before %#x is not executable", ErrNoPatchArea, target)
		}

		areaAddr := target - 5
		const areaLen = 7 // 5-byte long jmp + 2-byte short jmp back
		original, err := snapshot(areaAddr, areaLen)
		if err != nil {
			return nil, err
		}

		e := &pic.Emitter{}
		e.Add(jmp)
		e.Add(thunk.JmpRel8(int8(-jmp.Len())))
		redirect := e.Emit(areaAddr)

		trace("hot-patch area [%#x, %#x)", areaAddr, areaAddr+uintptr(areaLen))
		return &Patcher{areaAddr: areaAddr, original: original, redirect: redirect}, nil

	default:
		return nil, fmt.Errorf("%w: prolog of %d bytes is too short for either policy", ErrNoPatchArea, prologSize)
	}
}

func allPadding(b []byte) bool {
	for _, c := range b {
		if !paddingBytes[c] {
			return false
		}
	}
	return true
}

func snapshot(addr uintptr, n int) ([]byte, error) {
	region, err := memregion.Query(addr)
	if err != nil {
		return nil, fmt.Errorf("patcher: querying patch area at %#x: %w", addr, err)
	}
	if region.Prot&memregion.Execute == 0 {
		return nil, fmt.Errorf("%w: %#x is not executable", ErrNoPatchArea, addr)
	}
	return readMemory(addr, n), nil
}

// Area returns the address and length of the bytes this patcher toggles.
func (p *Patcher) Area() (addr uintptr, length int) {
	return p.areaAddr, len(p.original)
}

// Original returns a copy of the patch area's pre-patch bytes.
func (p *Patcher) Original() []byte { return append([]byte(nil), p.original...) }

// Redirect returns a copy of the bytes that redirect the target.
func (p *Patcher) Redirect() []byte { return append([]byte(nil), p.redirect...) }

// Toggle writes either the redirect bytes (enable=true) or the original
// bytes (enable=false) into the patch area, temporarily relaxing page
// protection to read-write-execute and restoring it afterward. Callers
// must hold whatever external mutex serializes concurrent toggles.
func (p *Patcher) Toggle(enable bool) error {
	restore, err := memregion.Protect(p.areaAddr, len(p.original), memregion.Read|memregion.Write|memregion.Execute)
	if err != nil {
		return fmt.Errorf("patcher: relaxing protection at %#x: %w", p.areaAddr, err)
	}
	defer restore()

	src := p.original
	if enable {
		src = p.redirect
	}
	writeMemory(p.areaAddr, src)
	trace("toggled patch area at %#x enable=%v", p.areaAddr, enable)
	return nil
}

// IsEnabled reports whether the patch area currently holds the redirect
// bytes rather than the original ones.
func (p *Patcher) IsEnabled() bool {
	return bytes.Equal(readMemory(p.areaAddr, len(p.original)), p.redirect)
}
