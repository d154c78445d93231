package diskmap

import (
	"errors"
	"fmt"

	"github.com/hupe1980/diskmap/hashdir"
	"github.com/hupe1980/diskmap/store"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadSuperblock is returned when a volume does not hold a map superblock.
	ErrBadSuperblock = errors.New("bad superblock")
	// ErrInvalidBackend is returned for an unknown Backend value.
	ErrInvalidBackend = errors.New("invalid backend")
	// ErrMissingKey is returned when an encrypted backend is chosen without a key.
	ErrMissingKey = errors.New("encryption key required")
)

// ErrLoadFactor indicates a map was reopened with a load factor other than
// the one it was created with.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrLoadFactor struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrLoadFactor) Error() string {
	return fmt.Sprintf("load factor mismatch: map has %d, opened with %d", e.Expected, e.Actual)
}

func (e *ErrLoadFactor) Unwrap() error { return e.cause }

// translateError maps store errors onto the package's sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func newLoadFactorError(expected, actual int) error {
	return &ErrLoadFactor{
		Expected: expected,
		Actual:   actual,
		cause:    hashdir.ErrLoadFactorMismatch,
	}
}
