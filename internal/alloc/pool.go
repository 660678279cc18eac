package alloc

import "sort"

// pool is a single RWX page run obtained via fixed-address mmap. It is
// never moved or resized once created; slices carved from it reference it
// by pointer and the pool is unmapped only once every carved slice has
// been released.
type pool struct {
	base uintptr
	size int
	free []freeRegion
	live int
}

type freeRegion struct {
	offset, size int
}

func newPool(base uintptr, size int) *pool {
	return &pool{base: base, size: size, free: []freeRegion{{0, size}}}
}

// carve takes n bytes from the front of the first free region of at least
// n bytes and returns their absolute address.
func (p *pool) carve(n int) (addr uintptr, ok bool) {
	for i, r := range p.free {
		if r.size < n {
			continue
		}
		addr = p.base + uintptr(r.offset)
		if r.size == n {
			p.free = append(p.free[:i], p.free[i+1:]...)
		} else {
			p.free[i] = freeRegion{r.offset + n, r.size - n}
		}
		p.live++
		return addr, true
	}
	return 0, false
}

// releaseRange returns a carved range to the free list, coalescing
// adjacent free regions, and reports whether the pool now has no live
// slices and should be unmapped.
func (p *pool) releaseRange(addr uintptr, n int) (empty bool) {
	offset := int(addr - p.base)
	p.free = append(p.free, freeRegion{offset, n})
	p.coalesce()
	p.live--
	return p.live == 0
}

func (p *pool) coalesce() {
	sort.Slice(p.free, func(i, j int) bool { return p.free[i].offset < p.free[j].offset })
	merged := make([]freeRegion, 0, len(p.free))
	for _, r := range p.free {
		if n := len(merged); n > 0 && merged[n-1].offset+merged[n-1].size == r.offset {
			merged[n-1].size += r.size
			continue
		}
		merged = append(merged, r)
	}
	p.free = merged
}

// contains reports whether [addr, addr+n) lies entirely within the pool.
func (p *pool) contains(addr uintptr, n int) bool {
	return addr >= p.base && addr+uintptr(n) <= p.base+uintptr(p.size)
}
