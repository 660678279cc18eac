//go:build linux

package memregion

import "golang.org/x/sys/unix"

func unixMapFixedFlag() int {
	return unix.MAP_FIXED_NOREPLACE
}
