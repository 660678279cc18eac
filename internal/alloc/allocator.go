// Package alloc implements the proximity allocator: RWX memory carved out
// close enough to a given origin address to stay within a 32-bit relative
// branch's reach.
package alloc

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xyproto/detour/internal/memregion"
)

// ErrOutOfMemory is returned when no address within reach of an origin can
// back a new allocation.
var ErrOutOfMemory = errors.New("alloc: no address within reach of origin can back an allocation")

// VerboseMode toggles one-line trace output to stderr for pool and slice
// lifecycle events.
var VerboseMode = false

func trace(format string, args ...any) {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "alloc: "+format+"\n", args...)
	}
}

// ProximityAllocator hands out RWX byte ranges whose base address falls
// within maxDistance of a caller-supplied origin. It is a process-wide
// singleton in the façade; all its operations are serialized by mu.
type ProximityAllocator struct {
	maxDistance uintptr
	mu          sync.Mutex
	pools       []*pool
}

// NewProximityAllocator constructs an allocator with the given reach.
func NewProximityAllocator(maxDistance uintptr) *ProximityAllocator {
	return &ProximityAllocator{maxDistance: maxDistance}
}

// Allocate returns a Slice of size bytes whose base lies within
// maxDistance of origin. Existing pools are tried first; failing that, a
// fresh pool is mapped near origin.
func (a *ProximityAllocator) Allocate(origin uintptr, size int) (*Slice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	low, high := reachWindow(origin, a.maxDistance)
	for _, p := range a.pools {
		if p.base < low || p.base+uintptr(p.size) > high {
			continue
		}
		if addr, ok := p.carve(size); ok {
			trace("carved %d bytes at %#x from existing pool %#x", size, addr, p.base)
			return &Slice{addr: addr, size: size, pool: p, owner: a}, nil
		}
	}

	pageSize := memregion.PageSize()
	poolSize := roundUp(size, pageSize)

	var result *Slice
	err := probeFreeRegions(origin, a.maxDistance, func(hint uintptr) (bool, error) {
		base, ok, err := memregion.MapFixed(hint, poolSize)
		if err != nil {
			return false, fmt.Errorf("mapping pool near %#x: %w", hint, err)
		}
		if !ok {
			return false, nil
		}
		p := newPool(base, poolSize)
		addr, carved := p.carve(size)
		if !carved {
			return false, fmt.Errorf("freshly mapped %d-byte pool could not satisfy a %d-byte request", poolSize, size)
		}
		a.pools = append(a.pools, p)
		trace("mapped new pool of %d bytes at %#x near origin %#x", poolSize, base, origin)
		result = &Slice{addr: addr, size: size, pool: p, owner: a}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("alloc: %w", err)
	}
	if result == nil {
		return nil, ErrOutOfMemory
	}
	return result, nil
}

// release returns a slice's bytes to its pool, unmapping the pool once no
// live slices reference it.
func (a *ProximityAllocator) release(s *Slice) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	empty := s.pool.releaseRange(s.addr, s.size)
	if !empty {
		return nil
	}
	for i, p := range a.pools {
		if p == s.pool {
			a.pools = append(a.pools[:i], a.pools[i+1:]...)
			break
		}
	}
	trace("unmapping emptied pool at %#x (%d bytes)", s.pool.base, s.pool.size)
	return memregion.Unmap(s.pool.base, s.pool.size)
}

func roundUp(n, multiple int) int {
	if multiple <= 0 {
		return n
	}
	if r := n % multiple; r != 0 {
		n += multiple - r
	}
	return n
}
