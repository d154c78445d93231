package fs

import (
	"io"
	"os"
)

// File is an open volume file. *os.File satisfies it.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Name() string
	Fd() uintptr
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
	Sync() error
}

// FileSystem is the set of filesystem calls volume backends make.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Stat(name string) (os.FileInfo, error)
	Truncate(name string, size int64) error
	MkdirAll(path string, perm os.FileMode) error
	Remove(name string) error
}

// Default is the operating system's filesystem.
var Default FileSystem = LocalFS{}

// LocalFS implements FileSystem with the os package.
type LocalFS struct{}

var _ File = (*os.File)(nil)

// OpenFile wraps os.OpenFile. A failed open returns a nil interface, not a typed nil.
func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (LocalFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (LocalFS) Truncate(name string, size int64) error { return os.Truncate(name, size) }

func (LocalFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (LocalFS) Remove(name string) error { return os.Remove(name) }
