//go:build linux || darwin || freebsd

package memregion

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

func toUnixProt(p Protection) int {
	var prot int
	if p&Read != 0 {
		prot |= unix.PROT_READ
	}
	if p&Write != 0 {
		prot |= unix.PROT_WRITE
	}
	if p&Execute != 0 {
		prot |= unix.PROT_EXEC
	}
	return prot
}

func protect(addr uintptr, n int, prot Protection) (func() error, error) {
	prev, err := Query(addr)
	if err != nil {
		return nil, fmt.Errorf("memregion: querying region before protect: %w", err)
	}

	base := pageFloor(addr)
	length := pageCeil(int(addr-base) + n)

	if err := unix.Mprotect(regionBytes(base, length), toUnixProt(prot)); err != nil {
		return nil, fmt.Errorf("memregion: mprotect %#x/%d: %w", addr, n, err)
	}

	restored := false
	return func() error {
		if restored {
			return nil
		}
		restored = true
		if err := unix.Mprotect(regionBytes(base, length), toUnixProt(prev.Prot)); err != nil {
			return fmt.Errorf("memregion: restoring protection at %#x: %w", addr, err)
		}
		return nil
	}, nil
}

// regionBytes builds a zero-copy []byte view over [addr, addr+n) for use
// with golang.org/x/sys/unix calls that take a byte slice.
func regionBytes(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}
