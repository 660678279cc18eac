package detour

import "unsafe"

// readMemory copies n bytes starting at addr out of process memory. Used
// to pull the bytes a target's prolog decoder and patch-area policy need
// to inspect; callers have already verified addr is in an executable
// region.
func readMemory(addr uintptr, n int) []byte {
	if n == 0 {
		return nil
	}
	view := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	out := make([]byte, n)
	copy(out, view)
	return out
}

// writeMemory copies src into process memory starting at addr. Only used
// against freshly allocated RWX slices, whose pages are already writable.
func writeMemory(addr uintptr, src []byte) {
	if len(src) == 0 {
		return
	}
	view := unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(src))
	copy(view, src)
}
