// Package mmap provides memory-mapped file access for volume slices.
//
// # Overview
//
// A volume file is never mapped as a whole. The mapped store maps fixed-size
// windows ("slices") of the file on first touch, which keeps each mapping
// bounded no matter how large the volume grows.
//
// # Usage
//
//	m, err := mmap.Map(f, sliceIndex*sliceSize, sliceSize, true)
//	if err != nil { ... }
//	defer m.Close()
//
//	copy(m.Bytes()[off:], payload)
//	_ = m.Sync()
//
// Read-only whole-file mappings are available through Open and back the
// local blob store.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2), msync(2), madvise(2)
//   - Windows: CreateFileMapping/MapViewOfFile/FlushViewOfFile (madvise is a no-op)
//
// Offsets passed to Map must be a multiple of the allocation granularity
// (page size on Unix, 64 KiB on Windows).
//
// # Thread Safety
//
// Close is idempotent and protected by atomic operations. Callers must
// ensure no goroutine touches Bytes() after Close() returns.
package mmap
