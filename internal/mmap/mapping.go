package mmap

import (
	"io"
	"os"
	"sync/atomic"
)

// Mapping represents a memory-mapped file region.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data     []byte
	size     int
	writable bool
	closed   atomic.Bool
	unmap    func([]byte) error
	flush    func([]byte) error
}

// Open maps the whole file at path into memory as read-only.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if size < 0 {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, flushFunc, err := osMap(f.Fd(), 0, int(size), false)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  int(size),
		unmap: unmapFunc,
		flush: flushFunc,
	}, nil
}

// Map maps size bytes of the file starting at offset. The file must already
// be at least offset+size bytes long. With writable set, stores into Bytes()
// reach the file (MAP_SHARED).
func Map(f interface{ Fd() uintptr }, offset int64, size int, writable bool) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if offset < 0 || offset%Granularity != 0 {
		return nil, ErrInvalidOffset
	}

	data, unmapFunc, flushFunc, err := osMap(f.Fd(), offset, size, writable)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:     data,
		size:     size,
		writable: writable,
		unmap:    unmapFunc,
		flush:    flushFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the underlying byte slice.
// The slice is valid only until Close() is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Sync flushes dirty pages of a writable mapping to the file.
func (m *Mapping) Sync() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.writable {
		return ErrReadOnly
	}
	if m.data == nil || m.flush == nil {
		return nil
	}
	return m.flush(m.data)
}

// Advise passes a paging hint for the whole mapping to the kernel.
func (m *Mapping) Advise(advice Advice) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return osAdvise(m.data, advice)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (n int, err error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
