package alloc

import "sync"

// Slice is a handle to a carved byte range inside a pooled RWX page run.
// It owns a refcount share of its pool: once every Slice referencing a
// pool has been released, the pool's pages are returned to the OS. The
// slice's base address is stable for its entire lifetime.
type Slice struct {
	mu       sync.Mutex
	addr     uintptr
	size     int
	pool     *pool
	owner    *ProximityAllocator
	released bool
}

// Addr returns the slice's base address.
func (s *Slice) Addr() uintptr { return s.addr }

// Size returns the slice's length in bytes.
func (s *Slice) Size() int { return s.size }

// Release returns the slice's bytes to its pool. Idempotent: only the
// first call has an effect.
func (s *Slice) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	return s.owner.release(s)
}
