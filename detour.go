// Package detour implements inline function detouring (hot-patching) for
// x86 and x86-64 user-space processes: redirecting calls to a target
// function into a caller-supplied detour function, with a generated
// trampoline that lets the detour call onward into the target's original
// behavior.
package detour

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/xyproto/detour/internal/alloc"
	"github.com/xyproto/detour/internal/memregion"
	"github.com/xyproto/detour/internal/patcher"
	"github.com/xyproto/detour/internal/prolog"
)

// codeWindow is how many bytes of a target's prolog are read up front for
// decoding, comfortably covering the longest prolog the builder could ever
// need to consume to clear the patch site's 5-byte redirect.
const codeWindow = 64

var (
	globalMu        sync.Mutex
	globalAllocator = alloc.NewProximityAllocator(maxDistance)
)

// Detour owns everything needed to redirect target to detourAddr and back:
// the patch area at target's entry point, the generated trampoline that
// replays the overwritten prolog, and the relay used when detourAddr is
// out of a direct branch's reach.
type Detour struct {
	target     uintptr
	detourAddr uintptr

	trampoline *alloc.Slice
	relay      *alloc.Slice
	patcher    *patcher.Patcher

	enabled atomic.Bool
}

// New prepares a detour from target to detourAddr without installing it;
// call Enable to activate the redirect. target and detourAddr must both
// point at executable code and must differ.
func New(target, detourAddr uintptr) (*Detour, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if target == detourAddr {
		return nil, newError(KindSameAddress, target, nil)
	}

	if ok, err := memregion.IsExecutable(target); err != nil {
		return nil, newError(KindRegionFailure, target, err)
	} else if !ok {
		return nil, newError(KindNotExecutable, target, nil)
	}
	if ok, err := memregion.IsExecutable(detourAddr); err != nil {
		return nil, newError(KindRegionFailure, detourAddr, err)
	} else if !ok {
		return nil, newError(KindNotExecutable, detourAddr, nil)
	}

	// The patch site's redirect is always a 5-byte rel32 jmp, whether it
	// targets detourAddr directly or a relay slice that makes the final
	// hop absolute; the trampoline only ever needs to relocate enough
	// prolog to clear that one instruction.
	code := readMemory(target, codeWindow)
	tr, err := prolog.Build(code, target, prolog.Margin)
	if err != nil {
		return nil, classifyPrologError(target, err)
	}

	var relaySlice *alloc.Slice
	redirectAddr := detourAddr
	if needsRelay(target, detourAddr) {
		relaySlice, err = globalAllocator.Allocate(target, relaySize())
		if err != nil {
			return nil, newError(KindOutOfMemory, target, err)
		}
		writeMemory(relaySlice.Addr(), relayBytes(detourAddr))
		redirectAddr = relaySlice.Addr()
	}

	trampolineSize := tr.Emitter.Len()
	trampolineSlice, err := globalAllocator.Allocate(target, trampolineSize)
	if err != nil {
		if relaySlice != nil {
			relaySlice.Release()
		}
		return nil, newError(KindOutOfMemory, target, err)
	}
	writeMemory(trampolineSlice.Addr(), tr.Emitter.Emit(trampolineSlice.Addr()))

	readBefore := func(n int) ([]byte, error) {
		if target < uintptr(n) {
			return nil, errors.New("patcher: target too close to address 0 for hot-patch probing")
		}
		return readMemory(target-uintptr(n), n), nil
	}

	p, err := patcher.New(target, tr.PrologSize, redirectAddr, readBefore)
	if err != nil {
		trampolineSlice.Release()
		if relaySlice != nil {
			relaySlice.Release()
		}
		if errors.Is(err, patcher.ErrNoPatchArea) {
			return nil, newError(KindNoPatchArea, target, err)
		}
		return nil, newError(KindRegionFailure, target, err)
	}

	return &Detour{
		target:     target,
		detourAddr: detourAddr,
		trampoline: trampolineSlice,
		relay:      relaySlice,
		patcher:    p,
	}, nil
}

// Enable installs the redirect, sending calls to target into detourAddr.
// Idempotent.
func (d *Detour) Enable() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if d.enabled.Load() {
		return nil
	}
	if err := d.patcher.Toggle(true); err != nil {
		return newError(KindRegionFailure, d.target, err)
	}
	d.enabled.Store(true)
	return nil
}

// Disable restores target's original bytes. Idempotent.
func (d *Detour) Disable() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if !d.enabled.Load() {
		return nil
	}
	if err := d.patcher.Toggle(false); err != nil {
		return newError(KindRegionFailure, d.target, err)
	}
	d.enabled.Store(false)
	return nil
}

// IsEnabled reports whether the redirect is currently installed.
func (d *Detour) IsEnabled() bool {
	return d.enabled.Load()
}

// Trampoline returns the address a detour should call to invoke the
// target's original behavior.
func (d *Detour) Trampoline() uintptr {
	addr := d.trampoline.Addr()
	runtime.KeepAlive(d)
	return addr
}

// Close disables the detour if enabled and releases the trampoline and
// relay memory. A Detour must not be used after Close.
func (d *Detour) Close() error {
	globalMu.Lock()
	if d.enabled.Load() {
		if err := d.patcher.Toggle(false); err == nil {
			d.enabled.Store(false)
		}
	}
	globalMu.Unlock()

	var errs []error
	if err := d.trampoline.Release(); err != nil {
		errs = append(errs, err)
	}
	if d.relay != nil {
		if err := d.relay.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("detour: closing %#x: %w", d.target, errors.Join(errs...))
	}
	return nil
}

func classifyPrologError(target uintptr, err error) error {
	switch {
	case errors.Is(err, prolog.ErrInvalidCode):
		return newError(KindInvalidCode, target, err)
	case errors.Is(err, prolog.ErrUnsupportedInstruction):
		return newError(KindUnsupportedInstruction, target, err)
	default:
		return newError(KindRegionFailure, target, err)
	}
}
