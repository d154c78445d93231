//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func osMap(fd uintptr, offset int64, size int, writable bool) ([]byte, func([]byte) error, func([]byte) error, error) {
	if size == 0 {
		return nil, nil, nil, nil
	}

	protect := uint32(windows.PAGE_READONLY)
	access := uint32(windows.FILE_MAP_READ)
	if writable {
		protect = windows.PAGE_READWRITE
		access = windows.FILE_MAP_WRITE
	}

	end := uint64(offset) + uint64(size)
	h, err := windows.CreateFileMapping(windows.Handle(fd), nil, protect, uint32(end>>32), uint32(end), nil)
	if err != nil {
		return nil, nil, nil, err
	}
	// The view keeps its own reference to the mapping object.
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, access, uint32(uint64(offset)>>32), uint32(offset), uintptr(size))
	if err != nil {
		return nil, nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	unmap := func([]byte) error {
		return windows.UnmapViewOfFile(addr)
	}
	flush := func(b []byte) error {
		return windows.FlushViewOfFile(addr, uintptr(len(b)))
	}
	return data, unmap, flush, nil
}

// Windows has no madvise equivalent.
func osAdvise([]byte, Advice) error { return nil }
