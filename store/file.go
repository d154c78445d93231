package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	vfs "github.com/hupe1980/diskmap/internal/fs"
)

// FileStore is a volume on a plain file. Every read and write is a
// positional system call on a single handle.
type FileStore struct {
	*volume
	f vfs.File
}

var _ Store = (*FileStore)(nil)

// OpenFile opens or creates the volume file at path.
func OpenFile(path string, optFns ...Option) (*FileStore, error) {
	opts := applyOptions(optFns)

	f, physical, err := openVolumeFile(opts.fs, path)
	if err != nil {
		return nil, err
	}

	s := &FileStore{f: f}
	s.volume = newVolume(path, opts, &fileBackend{fsys: opts.fs, f: f, path: path})
	if err := s.load(physical); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}

	s.log.Debug("file volume opened", "size", s.Size())
	return s, nil
}

func openVolumeFile(fsys vfs.FileSystem, path string) (vfs.File, int64, error) {
	if path == "" {
		return nil, 0, fmt.Errorf("%w: empty path", ErrOpen)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	return f, fi.Size(), nil
}

type fileBackend struct {
	fsys vfs.FileSystem
	f    vfs.File
	path string
}

func (b *fileBackend) readAt(p []byte, pos int64) error {
	n, err := b.f.ReadAt(p, pos)
	if errors.Is(err, io.EOF) {
		clear(p[n:])
		return nil
	}
	return err
}

func (b *fileBackend) writeAt(p []byte, pos int64) error {
	n, err := b.f.WriteAt(p, pos)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return err
}

// grow is a no-op: the file extends on write and unwritten tail bytes read as zero.
func (b *fileBackend) grow(int64) error { return nil }

func (b *fileBackend) sync() error { return b.f.Sync() }

func (b *fileBackend) truncate() error { return b.f.Truncate(MarkerSize) }

func (b *fileBackend) close(int64) error { return b.f.Close() }

func (b *fileBackend) remove() error {
	if err := b.fsys.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
