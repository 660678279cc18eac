//go:build darwin || freebsd

package memregion

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// query has no /proc/self/maps equivalent here without cgo. It falls back
// to mincore(2) to tell free from backed; a backed page is reported as
// read-write-execute since mincore carries no protection bits (reduced
// fidelity vs Linux — see DESIGN.md).
func query(addr uintptr) (Region, error) {
	page := pageFloor(addr)
	vec := make([]byte, 1)
	b := unsafe.Slice((*byte)(unsafe.Pointer(page)), PageSize())

	err := unix.Mincore(b, vec)
	if err != nil {
		if err == unix.ENOMEM {
			return Region{}, ErrFreed
		}
		return Region{}, fmt.Errorf("memregion: mincore %#x: %w", addr, err)
	}

	return Region{
		Low:  page,
		High: page + uintptr(PageSize()),
		Prot: Read | Write | Execute,
	}, nil
}
