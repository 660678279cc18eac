//go:build 386

package detour

// On x86 a jmp rel32 can always reach any address in the 32-bit address
// space, so no relay is ever required.
func needsRelay(target, detourAddr uintptr) bool { return false }

func relaySize() int { return 0 }

func relayBytes(dest uintptr) []byte { return nil }
