package detour

import (
	"testing"

	"github.com/xyproto/detour/internal/memregion"
)

// mapExecutable reserves an RWX page run at hint and arranges for it to be
// unmapped at test cleanup. Tests skip rather than fail when the sandbox
// disables fixed or W^X-violating mappings.
func mapExecutable(t *testing.T, hint uintptr, n int) uintptr {
	t.Helper()
	base, ok, err := memregion.MapFixed(hint, n)
	if err != nil {
		t.Skipf("MapFixed unsupported in this sandbox: %v", err)
	}
	if !ok {
		t.Skip("requested address unavailable for fixed mapping in this environment")
	}
	t.Cleanup(func() { memregion.Unmap(base, n) })
	return base
}
