package memregion

// Protect changes the protection of the page(s) covering [addr, addr+n) to
// prot and returns a restore func that puts the previous protection back.
// The caller is responsible for calling restore exactly once.
func Protect(addr uintptr, n int, prot Protection) (restore func() error, err error) {
	return protect(addr, n, prot)
}
