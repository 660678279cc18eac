//go:build amd64

package detour

import "github.com/xyproto/detour/internal/thunk"

// relayThreshold is the point past which a direct jmp rel32 from target to
// detourAddr can no longer reach: a signed 32-bit displacement's range.
const relayThreshold = 1 << 31

func needsRelay(target, detourAddr uintptr) bool {
	diff := int64(detourAddr) - int64(target)
	if diff < 0 {
		diff = -diff
	}
	return diff >= relayThreshold
}

func relaySize() int { return 14 }

func relayBytes(dest uintptr) []byte {
	return thunk.JmpAbs(uint64(dest)).Generate(0)
}
