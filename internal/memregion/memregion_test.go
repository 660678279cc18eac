package memregion

import (
	"errors"
	"testing"
)

func TestProtectionString(t *testing.T) {
	cases := []struct {
		prot Protection
		want string
	}{
		{0, "---"},
		{Read, "r--"},
		{Read | Write, "rw-"},
		{Read | Write | Execute, "rwx"},
		{Execute, "--x"},
	}
	for _, c := range cases {
		if got := c.prot.String(); got != c.want {
			t.Errorf("Protection(%d).String() = %q, want %q", c.prot, got, c.want)
		}
	}
}

func TestPageSizePowerOfTwo(t *testing.T) {
	ps := PageSize()
	if ps <= 0 || ps&(ps-1) != 0 {
		t.Fatalf("PageSize() = %d, want a positive power of two", ps)
	}
}

func TestQueryFreedAtNullPage(t *testing.T) {
	_, err := Query(0)
	if err == nil {
		t.Fatal("Query(0) succeeded, want ErrFreed or a region error")
	}
}

func TestMapFixedAndUnmap(t *testing.T) {
	const size = 4096

	// Find a free hint by probing an address far from any existing mapping.
	var hint uintptr = 0x10000000
	base, ok, err := MapFixed(hint, size)
	if err != nil {
		t.Skipf("MapFixed unsupported in this sandbox: %v", err)
	}
	if !ok {
		t.Skip("requested address unavailable for fixed mapping in this environment")
	}
	defer func() {
		if err := Unmap(base, size); err != nil {
			t.Errorf("Unmap: %v", err)
		}
	}()

	region, err := Query(base)
	if err != nil {
		t.Fatalf("Query(%#x) after MapFixed: %v", base, err)
	}
	if !region.Contains(base) {
		t.Fatalf("region %v does not contain freshly mapped base %#x", region, base)
	}
	if region.Prot&Execute == 0 {
		t.Fatalf("region %v is not executable, want RWX from MapFixed", region)
	}
}

func TestProtectRoundTrip(t *testing.T) {
	const size = 4096
	base, ok, err := MapFixed(0x20000000, size)
	if err != nil {
		t.Skipf("MapFixed unsupported in this sandbox: %v", err)
	}
	if !ok {
		t.Skip("requested address unavailable for fixed mapping in this environment")
	}
	defer Unmap(base, size)

	restore, err := Protect(base, size, Read)
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}
	region, err := Query(base)
	if err != nil {
		t.Fatalf("Query after Protect: %v", err)
	}
	if region.Prot&Write != 0 || region.Prot&Execute != 0 {
		t.Fatalf("region %v still writable/executable after Protect(Read)", region)
	}
	if err := restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	region, err = Query(base)
	if err != nil {
		t.Fatalf("Query after restore: %v", err)
	}
	if region.Prot&Execute == 0 {
		t.Fatalf("region %v lost its executable bit after restore", region)
	}
}

func TestIsExecutableOnFreedAddress(t *testing.T) {
	exec, err := IsExecutable(0)
	if err != nil && !errors.Is(err, ErrFreed) {
		t.Fatalf("IsExecutable(0): %v", err)
	}
	if exec {
		t.Fatal("IsExecutable(0) = true, want false for an unmapped address")
	}
}
