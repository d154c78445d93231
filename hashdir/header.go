package hashdir

import (
	"fmt"
	"math"
)

const (
	// MinLoadFactor is the smallest supported load factor (10 slots).
	MinLoadFactor = 1
	// MaxLoadFactor is the largest supported load factor (10^10 slots).
	MaxLoadFactor = 10

	// MaxHash is the largest hash the int32 order array can record.
	MaxHash = math.MaxInt32

	countSize = 4
	rootSize  = 8
	orderSize = 4
)

// Header locates a directory block inside its volume.
type Header struct {
	// FirstNode is the offset of the directory block, or 0 before the
	// block is allocated.
	FirstNode int64 `json:"first_node"`
	// LoadFactor fixes the capacity at 10^LoadFactor slots.
	LoadFactor int `json:"load_factor"`
}

// Slots returns 10^loadFactor.
func Slots(loadFactor int) (int, error) {
	if loadFactor < MinLoadFactor || loadFactor > MaxLoadFactor {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLoadFactor, loadFactor)
	}
	n := 1
	for range loadFactor {
		n *= 10
	}
	return n, nil
}

// BlockSize returns the number of bytes a directory with the given slot
// count occupies.
func BlockSize(slots int) int64 {
	return countSize + int64(slots+1)*(rootSize+orderSize)
}

type layout struct {
	first int64
	slots int
}

func (l layout) countPos() int64 { return l.first }

func (l layout) rootPos(hash int) int64 {
	return l.first + countSize + int64(hash)*rootSize
}

func (l layout) orderPos(index int) int64 {
	return l.first + countSize + int64(l.slots+1)*rootSize + int64(index)*orderSize
}
