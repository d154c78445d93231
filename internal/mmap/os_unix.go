//go:build unix

package mmap

import (
	"errors"

	"golang.org/x/sys/unix"
)

var madvise = map[Advice]int{
	AdviceNormal:     unix.MADV_NORMAL,
	AdviceSequential: unix.MADV_SEQUENTIAL,
	AdviceRandom:     unix.MADV_RANDOM,
	AdviceWillNeed:   unix.MADV_WILLNEED,
	AdviceDontNeed:   unix.MADV_DONTNEED,
}

func osMap(fd uintptr, offset int64, size int, writable bool) ([]byte, func([]byte) error, func([]byte) error, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(fd), offset, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, nil, err
	}
	msync := func(b []byte) error { return unix.Msync(b, unix.MS_SYNC) }
	return data, unix.Munmap, msync, nil
}

func osAdvise(data []byte, advice Advice) error {
	if len(data) == 0 {
		return nil
	}
	flag, ok := madvise[advice]
	if !ok {
		flag = unix.MADV_NORMAL
	}
	// Hints on a misaligned region are dropped.
	if err := unix.Madvise(data, flag); err != nil && !errors.Is(err, unix.EINVAL) {
		return err
	}
	return nil
}
