package mmap

import "errors"

// Advice is a paging hint passed to the kernel for a mapping.
type Advice int

const (
	// AdviceNormal removes any previous hint.
	AdviceNormal Advice = iota
	// AdviceSequential favors read-ahead. Used for blobs streamed front to back.
	AdviceSequential
	// AdviceRandom disables read-ahead. Used for volume slices, whose
	// directory and bucket lookups jump around.
	AdviceRandom
	// AdviceWillNeed prefetches the range.
	AdviceWillNeed
	// AdviceDontNeed lets the kernel drop the range from the page cache.
	AdviceDontNeed
)

// Granularity is the offset alignment every Map call must honor on all
// supported platforms.
const Granularity = 64 * 1024

var (
	// ErrClosed is returned for operations on an unmapped region.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for non-positive or oversized lengths.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidOffset is returned for negative or unaligned offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
	// ErrReadOnly is returned by Sync on a read-only mapping.
	ErrReadOnly = errors.New("mmap: mapping is read-only")
)
