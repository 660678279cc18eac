package patcher

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xyproto/detour/internal/memregion"
)

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

func TestDirectPatchAreaLengthsMatch(t *testing.T) {
	base := mapExecutable(t, 0x30000000, 4096)
	writeMemory(base, []byte{0x55, 0x48, 0x89, 0xE5, 0xC3, 0x90, 0x90, 0x90})

	p, err := New(base, 5, base+0x1000, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(p.Original()) != len(p.Redirect()) {
		t.Fatalf("len(Original)=%d != len(Redirect)=%d", len(p.Original()), len(p.Redirect()))
	}
	_, length := p.Area()
	if length != 5 {
		t.Fatalf("Area length = %d, want 5 for a direct patch", length)
	}
	if p.Redirect()[0] != 0xE9 {
		t.Fatalf("Redirect()[0] = %#x, want 0xE9 (jmp rel32)", p.Redirect()[0])
	}
}

func TestHotPatchRequiresPaddingBefore(t *testing.T) {
	base := mapExecutable(t, 0x31000000, 4096)
	// 5 non-padding bytes before the target, then a 2-byte prolog.
	writeMemory(base, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x31, 0xC0})
	target := base + 5

	_, err := New(target, 2, base+0x2000, func(n int) ([]byte, error) {
		return readMemory(target-uintptr(n), n), nil
	})
	if !errors.Is(err, ErrNoPatchArea) {
		t.Fatalf("New with non-padding prefix: err = %v, want ErrNoPatchArea", err)
	}
}

func TestHotPatchSucceedsWithPadding(t *testing.T) {
	base := mapExecutable(t, 0x32000000, 4096)
	// 5 NOPs (valid padding), then a 2-byte prolog at the target.
	writeMemory(base, []byte{0x90, 0x90, 0x90, 0x90, 0x90, 0x31, 0xC0})
	target := base + 5

	p, err := New(target, 2, base+0x3000, func(n int) ([]byte, error) {
		return readMemory(target-uintptr(n), n), nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	addr, length := p.Area()
	if addr != target-5 || length != 7 {
		t.Fatalf("hot-patch area = [%#x, +%d), want [%#x, +7)", addr, length, target-5)
	}
	if p.Redirect()[0] != 0xE9 {
		t.Fatalf("hot-patch redirect head = %#x, want 0xE9", p.Redirect()[0])
	}
	if tail := p.Redirect()[5:]; tail[0] != 0xEB {
		t.Fatalf("hot-patch redirect tail = % x, want short jmp back (EB ..)", tail)
	}
}

func TestToggleRoundTrip(t *testing.T) {
	base := mapExecutable(t, 0x33000000, 4096)
	original := []byte{0x55, 0x48, 0x89, 0xE5, 0xC3}
	writeMemory(base, original)

	p, err := New(base, 5, base+0x1000, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if p.IsEnabled() {
		t.Fatal("patcher reports enabled before any Toggle")
	}
	if err := p.Toggle(true); err != nil {
		t.Fatalf("Toggle(true): %v", err)
	}
	if !p.IsEnabled() {
		t.Fatal("patcher does not report enabled after Toggle(true)")
	}
	if !bytes.Equal(readMemory(base, 5), p.Redirect()) {
		t.Fatal("target bytes do not match redirect bytes after enabling")
	}
	if err := p.Toggle(false); err != nil {
		t.Fatalf("Toggle(false): %v", err)
	}
	if !bytes.Equal(readMemory(base, 5), original) {
		t.Fatal("target bytes were not restored after disabling")
	}
}
