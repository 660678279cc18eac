package patcher

import "unsafe"

// readMemory copies n bytes starting at addr out of process memory.
func readMemory(addr uintptr, n int) []byte {
	if n == 0 {
		return nil
	}
	view := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	out := make([]byte, n)
	copy(out, view)
	return out
}

// writeMemory copies src into process memory starting at addr. The caller
// must ensure the range is currently writable.
func writeMemory(addr uintptr, src []byte) {
	if len(src) == 0 {
		return
	}
	view := unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(src))
	copy(view, src)
}
