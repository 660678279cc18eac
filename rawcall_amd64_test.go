//go:build amd64

package detour

// rawcall2 calls fn(a, b) per the System V AMD64 ABI and returns its
// result. Implemented in rawcall_amd64_test.s; used only to drive the
// raw machine code the scenario tests write into mapped pages.
func rawcall2(fn uintptr, a, b int64) int64
