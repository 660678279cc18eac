//go:build windows

package memregion

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func protectionToWinProt(p Protection) uint32 {
	switch {
	case p&Execute != 0 && p&Write != 0:
		return windows.PAGE_EXECUTE_READWRITE
	case p&Execute != 0 && p&Read != 0:
		return windows.PAGE_EXECUTE_READ
	case p&Execute != 0:
		return windows.PAGE_EXECUTE
	case p&Write != 0:
		return windows.PAGE_READWRITE
	case p&Read != 0:
		return windows.PAGE_READONLY
	default:
		return windows.PAGE_NOACCESS
	}
}

func protect(addr uintptr, n int, prot Protection) (func() error, error) {
	base := pageFloor(addr)
	length := uintptr(pageCeil(int(addr-base) + n))

	var oldProt uint32
	if err := windows.VirtualProtect(base, length, protectionToWinProt(prot), &oldProt); err != nil {
		return nil, fmt.Errorf("memregion: VirtualProtect %#x/%d: %w", addr, n, err)
	}

	restored := false
	return func() error {
		if restored {
			return nil
		}
		restored = true
		var discard uint32
		if err := windows.VirtualProtect(base, length, oldProt, &discard); err != nil {
			return fmt.Errorf("memregion: restoring protection at %#x: %w", addr, err)
		}
		return nil
	}, nil
}
