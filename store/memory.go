package store

import (
	"fmt"

	"github.com/hupe1980/diskmap/resource"
)

// MemoryStore is a sliced volume held entirely in process memory. Nothing
// survives Close; a new instance always starts empty.
type MemoryStore struct {
	*volume
	slices *sliceTable
}

var _ Store = (*MemoryStore)(nil)

// OpenMemory creates an in-memory volume. The name is informational only.
// Slices are created by the first write into their range. Slice memory is
// charged to the resource controller, if one is configured; a denied
// reservation fails that write with ErrCapacityExceeded. In-memory volumes
// are always ephemeral and default to EphemeralSliceSize slices.
func OpenMemory(name string, optFns ...Option) (*MemoryStore, error) {
	opts := applyOptions(append([]Option{WithEphemeral()}, optFns...))

	b := &memoryBackend{rc: opts.rc, sliceSize: opts.sliceSize}
	b.slices = newSliceTable(opts.sliceSize, b.newSlice)

	s := &MemoryStore{slices: b.slices}
	s.volume = newVolume(name, opts, b)
	if err := s.load(0); err != nil {
		return nil, fmt.Errorf("%w: memory %q: %w", ErrOpen, name, err)
	}
	return s, nil
}

// Slices returns the number of slices currently backing the volume.
func (s *MemoryStore) Slices() int { return s.slices.count() }

type memoryBackend struct {
	rc        *resource.Controller
	sliceSize int
	slices    *sliceTable
}

func (b *memoryBackend) newSlice(index int) (*slice, error) {
	n := int64(b.sliceSize)
	if !b.rc.TryAcquireMemory(n) {
		return nil, fmt.Errorf("%w: slice %d: %w", ErrCapacityExceeded, index, resource.ErrMemoryLimitExceeded)
	}
	return &slice{
		buf: make([]byte, b.sliceSize),
		release: func() error {
			b.rc.ReleaseMemory(n)
			return nil
		},
	}, nil
}

func (b *memoryBackend) readAt(p []byte, pos int64) error {
	return b.slices.readAt(p, pos, false)
}

func (b *memoryBackend) writeAt(p []byte, pos int64) error { return b.slices.writeAt(p, pos) }
func (b *memoryBackend) grow(int64) error                  { return nil }
func (b *memoryBackend) sync() error                       { return nil }
func (b *memoryBackend) remove() error                     { return nil }

func (b *memoryBackend) truncate() error   { return b.slices.releaseAll() }
func (b *memoryBackend) close(int64) error { return b.slices.releaseAll() }
