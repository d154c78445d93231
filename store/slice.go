package store

import (
	"sync"

	"github.com/hupe1980/diskmap/internal/mmap"
)

// alignSliceSize rounds size up to the mapping granularity so every slice
// starts at a mappable offset.
func alignSliceSize(size int) int {
	g := mmap.Granularity
	return (size + g - 1) / g * g
}

// slice is one fixed-size window of a sliced volume. Slice i covers
// [i*sliceSize, (i+1)*sliceSize).
type slice struct {
	mu      sync.Mutex
	buf     []byte
	release func() error
	flush   func() error
}

// sliceTable creates slices lazily and caches them by index.
type sliceTable struct {
	size   int
	create func(index int) (*slice, error)

	mu     sync.RWMutex
	slices []*slice
}

func newSliceTable(size int, create func(index int) (*slice, error)) *sliceTable {
	return &sliceTable{size: size, create: create}
}

// get returns slice i, creating it when create is set. It returns nil for a
// slice that was never touched.
func (t *sliceTable) get(i int, create bool) (*slice, error) {
	t.mu.RLock()
	if i < len(t.slices) && t.slices[i] != nil {
		s := t.slices[i]
		t.mu.RUnlock()
		return s, nil
	}
	t.mu.RUnlock()
	if !create {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if i < len(t.slices) && t.slices[i] != nil {
		return t.slices[i], nil
	}
	s, err := t.create(i)
	if err != nil {
		return nil, err
	}
	if i >= len(t.slices) {
		t.slices = append(t.slices, make([]*slice, i+1-len(t.slices))...)
	}
	t.slices[i] = s
	return s, nil
}

// readAt copies slice bytes into p. Untouched slices read as zero unless
// create is set.
func (t *sliceTable) readAt(p []byte, pos int64, create bool) error {
	for len(p) > 0 {
		i, off := int(pos/int64(t.size)), int(pos%int64(t.size))
		n := min(len(p), t.size-off)

		s, err := t.get(i, create)
		if err != nil {
			return err
		}
		if s == nil {
			clear(p[:n])
		} else {
			s.mu.Lock()
			copy(p[:n], s.buf[off:])
			s.mu.Unlock()
		}
		p = p[n:]
		pos += int64(n)
	}
	return nil
}

func (t *sliceTable) writeAt(p []byte, pos int64) error {
	for len(p) > 0 {
		i, off := int(pos/int64(t.size)), int(pos%int64(t.size))
		n := min(len(p), t.size-off)

		s, err := t.get(i, true)
		if err != nil {
			return err
		}
		s.mu.Lock()
		copy(s.buf[off:], p[:n])
		s.mu.Unlock()

		p = p[n:]
		pos += int64(n)
	}
	return nil
}

// each calls fn for every live slice.
func (t *sliceTable) each(fn func(*slice) error) error {
	t.mu.RLock()
	live := make([]*slice, 0, len(t.slices))
	for _, s := range t.slices {
		if s != nil {
			live = append(live, s)
		}
	}
	t.mu.RUnlock()

	for _, s := range live {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

// releaseAll drops every slice, returning the first release error.
func (t *sliceTable) releaseAll() error {
	t.mu.Lock()
	slices := t.slices
	t.slices = nil
	t.mu.Unlock()

	var first error
	for _, s := range slices {
		if s == nil || s.release == nil {
			continue
		}
		s.mu.Lock()
		err := s.release()
		s.buf = nil
		s.mu.Unlock()
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// count returns the number of live slices.
func (t *sliceTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, s := range t.slices {
		if s != nil {
			n++
		}
	}
	return n
}
