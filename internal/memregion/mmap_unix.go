//go:build linux || darwin || freebsd

package memregion

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapFixedFlag is MAP_FIXED_NOREPLACE on Linux, so a colliding hint fails
// cleanly with EEXIST instead of silently clobbering an existing mapping.
// Other BSDs lack the flag; Query is used to avoid the collision instead.
var mapFixedFlag = unixMapFixedFlag()

// MapFixed attempts to map n bytes of RWX memory at hint. ok is false (with
// a nil error) if the address range could not be obtained there, matching
// spec.md's map_fixed contract ("returns None if the address range is
// unavailable").
func MapFixed(hint uintptr, n int) (base uintptr, ok bool, err error) {
	n = pageCeil(n)

	if mapFixedFlag == 0 {
		free, err := rangeIsFree(hint, n)
		if err != nil {
			return 0, false, fmt.Errorf("memregion: probing %#x before mmap: %w", hint, err)
		}
		if !free {
			return 0, false, nil
		}
	}

	// unix.Mmap has no address parameter — it always maps at 0 internally
	// and ignores the fd/offset pair's use as a placement hint when
	// MAP_ANON is set. MmapPtr is the variant that actually forwards an
	// address to the mmap(2) call, which MAP_FIXED needs to mean anything.
	ret, err := unix.MmapPtr(-1, 0, unsafe.Pointer(hint), uintptr(n),
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_FIXED|mapFixedFlag)
	if err != nil {
		if err == unix.EEXIST || err == unix.EINVAL || err == unix.ENOMEM || err == unix.EPERM {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("memregion: mmap fixed %#x/%d: %w", hint, n, err)
	}
	return uintptr(ret), true, nil
}

// rangeIsFree reports whether every page in [addr, addr+n) is unmapped.
func rangeIsFree(addr uintptr, n int) (bool, error) {
	ps := uintptr(PageSize())
	end := addr + uintptr(n)
	for cur := pageFloor(addr); cur < end; cur += ps {
		_, err := Query(cur)
		if errors.Is(err, ErrFreed) {
			continue
		}
		if err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Unmap releases n bytes previously obtained from MapFixed.
func Unmap(addr uintptr, n int) error {
	b := regionBytes(addr, pageCeil(n))
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("memregion: munmap %#x/%d: %w", addr, n, err)
	}
	return nil
}
