package store

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	vfs "github.com/hupe1980/diskmap/internal/fs"
	"github.com/hupe1980/diskmap/internal/mmap"
	"golang.org/x/sync/errgroup"
)

// MappedStore is a volume whose file is mapped into memory one slice at a
// time. Slices are mapped read-write on first touch and cached by index.
// The file may be over-allocated up to a slice boundary while open; Close
// truncates it to the logical size unless the volume is ephemeral.
type MappedStore struct {
	*volume
	b *mappedBackend
}

var _ Store = (*MappedStore)(nil)

// OpenMapped opens or creates a memory-mapped volume at path.
func OpenMapped(path string, optFns ...Option) (*MappedStore, error) {
	opts := applyOptions(optFns)

	f, physical, err := openVolumeFile(opts.fs, path)
	if err != nil {
		return nil, err
	}

	b := &mappedBackend{
		fsys:      opts.fs,
		f:         f,
		path:      path,
		ephemeral: opts.ephemeral,
		sliceSize: opts.sliceSize,
		physical:  physical,
	}
	b.slices = newSliceTable(opts.sliceSize, b.mapSlice)

	s := &MappedStore{b: b}
	s.volume = newVolume(path, opts, b)
	if err := s.load(physical); err != nil {
		_ = b.slices.releaseAll()
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}

	s.log.Debug("mapped volume opened", "size", s.Size(), "slice_size", opts.sliceSize)
	return s, nil
}

// Slices returns the number of slices currently mapped.
func (s *MappedStore) Slices() int { return s.b.slices.count() }

type mappedBackend struct {
	fsys      vfs.FileSystem
	f         vfs.File
	path      string
	ephemeral bool
	sliceSize int
	slices    *sliceTable

	fileMu   sync.Mutex
	physical int64
}

// mapSlice extends the file to cover slice index and maps it.
func (b *mappedBackend) mapSlice(index int) (*slice, error) {
	off := int64(index) * int64(b.sliceSize)
	if err := b.extend(off + int64(b.sliceSize)); err != nil {
		return nil, err
	}
	m, err := mmap.Map(b.f, off, b.sliceSize, true)
	if err != nil {
		return nil, fmt.Errorf("%w: map slice %d: %w", ErrCapacityExceeded, index, err)
	}
	_ = m.Advise(mmap.AdviceRandom)
	return &slice{buf: m.Bytes(), release: m.Close, flush: m.Sync}, nil
}

func (b *mappedBackend) extend(end int64) error {
	b.fileMu.Lock()
	defer b.fileMu.Unlock()
	if end <= b.physical {
		return nil
	}
	if err := b.f.Truncate(end); err != nil {
		return err
	}
	b.physical = end
	return nil
}

func (b *mappedBackend) readAt(p []byte, pos int64) error {
	return b.slices.readAt(p, pos, true)
}

func (b *mappedBackend) writeAt(p []byte, pos int64) error { return b.slices.writeAt(p, pos) }

// grow extends the file to the slice boundary covering end. Slices are
// mapped on first touch.
func (b *mappedBackend) grow(end int64) error {
	ss := int64(b.sliceSize)
	return b.extend((end + ss - 1) / ss * ss)
}

// sync flushes mapped slices in parallel, then the file metadata.
func (b *mappedBackend) sync() error {
	var g errgroup.Group
	_ = b.slices.each(func(s *slice) error {
		g.Go(func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.flush == nil {
				return nil
			}
			return s.flush()
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return b.f.Sync()
}

func (b *mappedBackend) truncate() error {
	if err := b.slices.releaseAll(); err != nil {
		return err
	}
	b.fileMu.Lock()
	defer b.fileMu.Unlock()
	if err := b.f.Truncate(MarkerSize); err != nil {
		return err
	}
	b.physical = MarkerSize
	return nil
}

func (b *mappedBackend) close(size int64) error {
	err := b.slices.releaseAll()
	if !b.ephemeral {
		if terr := b.f.Truncate(size); terr != nil && err == nil {
			err = terr
		}
	}
	if cerr := b.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (b *mappedBackend) remove() error {
	if err := b.fsys.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
