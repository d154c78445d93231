package hashdir

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/diskmap/store"
)

var (
	// ErrInvalidLoadFactor is returned for load factors outside [1, 10].
	ErrInvalidLoadFactor = errors.New("hashdir: invalid load factor")
	// ErrLoadFactorMismatch is returned when a directory is reopened with a
	// load factor other than the one it was allocated with.
	ErrLoadFactorMismatch = errors.New("hashdir: load factor mismatch")
	// ErrHashOutOfRange is returned for hashes outside [0, slots).
	ErrHashOutOfRange = errors.New("hashdir: hash out of range")
	// ErrIndexOutOfRange is returned for order indexes outside [0, count).
	ErrIndexOutOfRange = errors.New("hashdir: order index out of range")
	// ErrDirectoryFull is returned when every slot has been populated.
	ErrDirectoryFull = errors.New("hashdir: directory full")
)

// Directory is the volume-backed hash directory.
//
// Lookups are plain positional reads. Inserts are serialized so that the
// count and the order array stay consistent.
type Directory struct {
	s      store.Store
	header Header
	layout layout
	log    *slog.Logger

	mu    sync.Mutex
	count atomic.Int32
}

var _ Buckets = (*Directory)(nil)

// New opens the directory described by h on s. When h.FirstNode is 0 the
// block is allocated and h.FirstNode is set; the caller owns persisting h.
func New(s store.Store, h *Header, optFns ...Option) (*Directory, error) {
	opts := applyOptions(optFns)

	slots, err := Slots(h.LoadFactor)
	if err != nil {
		return nil, err
	}

	d := &Directory{
		s:   s,
		log: opts.logger.With("component", "hashdir"),
	}

	if h.FirstNode == 0 {
		pos, err := s.Allocate(int(BlockSize(slots)))
		if err != nil {
			return nil, fmt.Errorf("hashdir: allocate directory: %w", err)
		}
		h.FirstNode = pos
		d.header = *h
		d.layout = layout{first: pos, slots: slots}
		if err := d.writeCount(0); err != nil {
			return nil, err
		}
		d.log.Debug("directory allocated", "first_node", pos, "load_factor", h.LoadFactor, "slots", slots)
		return d, nil
	}

	d.header = *h
	d.layout = layout{first: h.FirstNode, slots: slots}
	if h.FirstNode+BlockSize(slots) > s.Size() {
		return nil, fmt.Errorf("%w: directory at %d with %d slots exceeds volume size %d",
			store.ErrCorrupt, h.FirstNode, slots, s.Size())
	}
	b, err := s.ReadAt(d.layout.countPos(), countSize)
	if err != nil {
		return nil, err
	}
	count := int32(binary.LittleEndian.Uint32(b))
	if count < 0 || int(count) > slots {
		return nil, fmt.Errorf("%w: bucket count %d", store.ErrCorrupt, count)
	}
	d.count.Store(count)
	return d, nil
}

// Header returns the directory header.
func (d *Directory) Header() Header { return d.header }

// Store returns the volume the directory lives on.
func (d *Directory) Store() store.Store { return d.s }

// Slots returns the number of hash slots.
func (d *Directory) Slots() int { return d.layout.slots }

// Count returns the number of buckets ever populated. It never decreases
// except through Clear.
func (d *Directory) Count() int { return int(d.count.Load()) }

func (d *Directory) checkHash(hash int) error {
	if hash < 0 || hash >= d.layout.slots || hash > MaxHash {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrHashOutOfRange, hash, min(d.layout.slots, MaxHash+1))
	}
	return nil
}

// Reference returns the bucket root for hash, or 0 if the bucket is empty.
func (d *Directory) Reference(hash int) (int64, error) {
	if err := d.checkHash(hash); err != nil {
		return 0, err
	}
	b, err := d.s.ReadAt(d.layout.rootPos(hash), rootSize)
	if err != nil || b == nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// Insert records root as the first root of hash. It appends hash to the
// order array and bumps the count.
func (d *Directory) Insert(hash int, root int64) (int64, error) {
	return d.insert(hash, root, nil)
}

// insert runs before, if set, with the order index under the insert lock
// ahead of any volume write.
//
// The order entry and the root are written first and the count last, so a
// failed insert never exposes an order index without its root.
func (d *Directory) insert(hash int, root int64, before func(index int)) (int64, error) {
	if err := d.checkHash(hash); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	index := int(d.count.Load())
	if index >= d.layout.slots {
		return 0, fmt.Errorf("%w: %d buckets", ErrDirectoryFull, index)
	}
	prev, err := d.Reference(hash)
	if err != nil {
		return 0, err
	}
	if before != nil {
		before(index)
	}

	// order[index] is past the count, so it stays invisible until the count
	// write below succeeds.
	var b [orderSize]byte
	binary.LittleEndian.PutUint32(b[:], uint32(hash))
	if err := d.s.WriteAt(b[:], d.layout.orderPos(index)); err != nil {
		return 0, err
	}
	if err := d.writeRoot(hash, root); err != nil {
		return 0, err
	}
	if err := d.writeCount(int32(index + 1)); err != nil {
		if rerr := d.writeRoot(hash, prev); rerr != nil {
			d.log.Error("insert rollback failed", "hash", hash, "error", rerr)
		}
		return 0, err
	}
	d.count.Store(int32(index + 1))
	return root, nil
}

// Update replaces the root of hash without touching the count or the
// order array.
func (d *Directory) Update(hash int, root int64) (int64, error) {
	if err := d.checkHash(hash); err != nil {
		return 0, err
	}
	if err := d.writeRoot(hash, root); err != nil {
		return 0, err
	}
	return root, nil
}

// Identifier returns the hash of the index-th populated bucket.
func (d *Directory) Identifier(index int) (int, error) {
	if index < 0 || index >= d.Count() {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, d.Count())
	}
	b, err := d.s.ReadAt(d.layout.orderPos(index), orderSize)
	if err != nil {
		return 0, err
	}
	if b == nil {
		return 0, fmt.Errorf("%w: order array truncated at %d", store.ErrCorrupt, index)
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}

// Clear empties every populated bucket and resets the count. Sub-map
// storage is not reclaimed.
func (d *Directory) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zeroOrder [orderSize]byte
	for i := range int(d.count.Load()) {
		b, err := d.s.ReadAt(d.layout.orderPos(i), orderSize)
		if err != nil {
			return err
		}
		if b == nil {
			break
		}
		hash := int(binary.LittleEndian.Uint32(b))
		if hash < d.layout.slots {
			if err := d.writeRoot(hash, 0); err != nil {
				return err
			}
		}
		if err := d.s.WriteAt(zeroOrder[:], d.layout.orderPos(i)); err != nil {
			return err
		}
	}
	if err := d.writeCount(0); err != nil {
		return err
	}
	d.count.Store(0)
	d.log.Debug("directory cleared", "first_node", d.layout.first)
	return nil
}

// Occupied returns the set of hashes whose bucket has a non-zero root.
func (d *Directory) Occupied() (*roaring.Bitmap, error) {
	bm := roaring.New()
	for b, err := range All(d) {
		if err != nil {
			return nil, err
		}
		bm.Add(uint32(b.Hash))
	}
	return bm, nil
}

func (d *Directory) writeCount(n int32) error {
	var b [countSize]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	return d.s.WriteAt(b[:], d.layout.countPos())
}

func (d *Directory) writeRoot(hash int, root int64) error {
	var b [rootSize]byte
	binary.LittleEndian.PutUint64(b[:], uint64(root))
	return d.s.WriteAt(b[:], d.layout.rootPos(hash))
}
