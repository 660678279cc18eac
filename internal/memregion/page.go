package memregion

import "os"

// PageSize returns the OS page granularity. A single syscall wrapper already
// lives in the standard library and no example in the corpus reaches for a
// third-party alternative for it, so it is used directly (see DESIGN.md).
func PageSize() int {
	return os.Getpagesize()
}

// pageFloor rounds addr down to the nearest page boundary.
func pageFloor(addr uintptr) uintptr {
	ps := uintptr(PageSize())
	return addr &^ (ps - 1)
}

// pageCeil rounds n up to a multiple of the page size.
func pageCeil(n int) int {
	ps := PageSize()
	return (n + ps - 1) &^ (ps - 1)
}
