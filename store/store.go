package store

import (
	"errors"
)

const (
	// MarkerSize is the size of the allocated-size marker at offset 0.
	MarkerSize = 8

	// DefaultSliceSize is the slice capacity of durable mapped volumes.
	DefaultSliceSize = 4 << 20

	// EphemeralSliceSize is the slice capacity of ephemeral and in-memory
	// volumes.
	EphemeralSliceSize = 256 << 10
)

var (
	// ErrOpen is returned when a volume's backing resource cannot be opened.
	ErrOpen = errors.New("store: open failed")
	// ErrClosed is returned for operations on a closed volume.
	ErrClosed = errors.New("store: volume is closed")
	// ErrCapacityExceeded is returned when an allocation cannot be backed.
	ErrCapacityExceeded = errors.New("store: capacity exceeded")
	// ErrInvalidPosition is returned for positions inside the size marker,
	// negative positions and writes past the allocated end.
	ErrInvalidPosition = errors.New("store: invalid position")
	// ErrInvalidSize is returned for negative sizes.
	ErrInvalidSize = errors.New("store: invalid size")
	// ErrNotFound is returned by ReadObject at or beyond the allocated end.
	ErrNotFound = errors.New("store: no data at position")
	// ErrCorrupt is returned when persisted bytes cannot be decoded.
	ErrCorrupt = errors.New("store: corrupt data")
	// ErrUnknownSerializer is returned for a serializer id missing from the table.
	ErrUnknownSerializer = errors.New("store: unknown serializer")
)

// Store is a volume: an allocation-based byte address space.
//
// All methods are safe for concurrent use. Positions returned by Allocate
// are strictly increasing and never reused until Reset.
type Store interface {
	// Path identifies the backing resource; empty for anonymous in-memory volumes.
	Path() string
	// Size returns the allocated size, including the marker.
	Size() int64
	// Dirty reports whether writes happened since the last Commit.
	Dirty() bool
	// Serializers returns the table used for object I/O.
	Serializers() *Serializers

	// Allocate reserves size bytes at the end of the volume and returns their position.
	Allocate(size int) (int64, error)
	// WriteAt writes p at pos. The range must lie within the allocated size.
	WriteAt(p []byte, pos int64) error
	// ReadAt reads size bytes at pos. It returns nil, nil when pos >= Size().
	ReadAt(pos int64, size int) ([]byte, error)

	// WriteObject encodes v, allocates room for it and writes it.
	WriteObject(v any) (pos int64, size int, err error)
	// ReadObject decodes the object of the given encoded size at pos into v.
	ReadObject(pos int64, size int, v any) error

	// Commit durably flushes all writes.
	Commit() error
	// Reset truncates the volume back to the size marker.
	Reset() error
	// Close flushes (unless ephemeral) and releases the volume.
	Close() error
	// Delete closes the volume and removes its backing resource.
	Delete() error
}
