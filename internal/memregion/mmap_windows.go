//go:build windows

package memregion

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// MapFixed attempts to reserve and commit n bytes of RWX memory at hint.
func MapFixed(hint uintptr, n int) (base uintptr, ok bool, err error) {
	n = pageCeil(n)

	addr, err := windows.VirtualAlloc(hint, uintptr(n),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_ADDRESS) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("memregion: VirtualAlloc %#x/%d: %w", hint, n, err)
	}
	if addr != hint {
		// The OS picked a different address than requested; release it and
		// report the hint as unavailable rather than silently relocating.
		_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		return 0, false, nil
	}
	return addr, true, nil
}

// Unmap releases memory previously obtained from MapFixed.
func Unmap(addr uintptr, n int) error {
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("memregion: VirtualFree %#x/%d: %w", addr, n, err)
	}
	return nil
}
