package blobstore

import (
	"bytes"
	"context"
	"io"
)

// BytesBlob is a Blob over an in-memory byte slice.
type BytesBlob []byte

var (
	_ Blob     = BytesBlob(nil)
	_ Mappable = BytesBlob(nil)
)

// ReadAt copies from off. A read that reaches the end returns io.EOF.
func (b BytesBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ReadRange returns at most length bytes from off. Ranges past the end are empty.
func (b BytesBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || off >= int64(len(b)) || length <= 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := min(off+length, int64(len(b)))
	return io.NopCloser(bytes.NewReader(b[off:end])), nil
}

func (b BytesBlob) Close() error { return nil }

func (b BytesBlob) Size() int64 { return int64(len(b)) }

func (b BytesBlob) Bytes() ([]byte, error) { return b, nil }
