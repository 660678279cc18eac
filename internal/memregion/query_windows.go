//go:build windows

package memregion

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

func query(addr uintptr) (Region, error) {
	var info windows.MemoryBasicInformation
	err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info))
	if err != nil {
		return Region{}, fmt.Errorf("memregion: VirtualQuery %#x: %w", addr, err)
	}
	if info.State == windows.MEM_FREE {
		return Region{}, ErrFreed
	}
	return Region{
		Low:  info.BaseAddress,
		High: info.BaseAddress + info.RegionSize,
		Prot: winProtToProtection(info.Protect),
	}, nil
}

func winProtToProtection(p uint32) Protection {
	const (
		pageNoAccess         = 0x01
		pageReadOnly         = 0x02
		pageReadWrite        = 0x04
		pageWriteCopy        = 0x08
		pageExecute          = 0x10
		pageExecuteRead      = 0x20
		pageExecuteReadWrite = 0x40
		pageExecuteWriteCopy = 0x80
	)
	var prot Protection
	switch p & 0xff {
	case pageReadOnly:
		prot = Read
	case pageReadWrite, pageWriteCopy:
		prot = Read | Write
	case pageExecute:
		prot = Execute
	case pageExecuteRead:
		prot = Read | Execute
	case pageExecuteReadWrite, pageExecuteWriteCopy:
		prot = Read | Write | Execute
	case pageNoAccess:
	}
	return prot
}
