//go:build linux

package memregion

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// query parses /proc/self/maps, the standard Linux mechanism for
// page-granular region introspection (no syscall gives this directly).
func query(addr uintptr) (Region, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return Region{}, fmt.Errorf("memregion: opening /proc/self/maps: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		region, ok, err := parseMapsLine(line)
		if err != nil {
			return Region{}, fmt.Errorf("memregion: parsing /proc/self/maps: %w", err)
		}
		if !ok {
			continue
		}
		if region.Contains(addr) {
			return region, nil
		}
	}
	if err := sc.Err(); err != nil {
		return Region{}, fmt.Errorf("memregion: scanning /proc/self/maps: %w", err)
	}
	return Region{}, ErrFreed
}

// parseMapsLine parses one /proc/self/maps record, e.g.:
// "7f2a1c000000-7f2a1c021000 rw-p 00000000 00:00 0 "
func parseMapsLine(line string) (Region, bool, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Region{}, false, nil
	}
	bounds := strings.SplitN(fields[0], "-", 2)
	if len(bounds) != 2 {
		return Region{}, false, fmt.Errorf("malformed range %q", fields[0])
	}
	low, err := strconv.ParseUint(bounds[0], 16, 64)
	if err != nil {
		return Region{}, false, err
	}
	high, err := strconv.ParseUint(bounds[1], 16, 64)
	if err != nil {
		return Region{}, false, err
	}
	perms := fields[1]
	var prot Protection
	if strings.Contains(perms, "r") {
		prot |= Read
	}
	if strings.Contains(perms, "w") {
		prot |= Write
	}
	if strings.Contains(perms, "x") {
		prot |= Execute
	}
	return Region{Low: uintptr(low), High: uintptr(high), Prot: prot}, true, nil
}
