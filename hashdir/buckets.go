package hashdir

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Buckets is the bucket-root access contract shared by Directory and Cached.
type Buckets interface {
	// Reference returns the root of hash, or 0 if the bucket is empty.
	Reference(hash int) (int64, error)
	// Insert records the first root of hash.
	Insert(hash int, root int64) (int64, error)
	// Update replaces the root of an already populated hash.
	Update(hash int, root int64) (int64, error)
	// Identifier returns the hash of the index-th populated bucket.
	Identifier(index int) (int, error)
	// Count returns the number of buckets ever populated.
	Count() int
	// Slots returns the directory capacity.
	Slots() int
	// Clear empties every bucket.
	Clear() error
}

// Bucket is one populated directory slot.
type Bucket struct {
	Index int
	Hash  int
	Root  int64
}

// BucketCursor walks populated buckets in first-populated order. It is
// not restartable; create a new cursor to walk again. Buckets populated
// after the cursor was created are not visited.
type BucketCursor struct {
	b     Buckets
	next  int
	count int
	seen  *roaring.Bitmap
	cur   Bucket
	err   error
}

// NewBucketCursor creates a cursor over b.
func NewBucketCursor(b Buckets) *BucketCursor {
	return &BucketCursor{
		b:     b,
		count: b.Count(),
		seen:  roaring.New(),
	}
}

// Next advances to the next bucket with a non-zero root. Each hash is
// visited at most once.
func (c *BucketCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for c.next < c.count {
		index := c.next
		c.next++

		hash, err := c.b.Identifier(index)
		if err != nil {
			c.err = err
			return false
		}
		if !c.seen.CheckedAdd(uint32(hash)) {
			continue
		}
		root, err := c.b.Reference(hash)
		if err != nil {
			c.err = err
			return false
		}
		if root == 0 {
			continue
		}
		c.cur = Bucket{Index: index, Hash: hash, Root: root}
		return true
	}
	return false
}

// Bucket returns the current bucket.
func (c *BucketCursor) Bucket() Bucket { return c.cur }

// Err returns the first error encountered.
func (c *BucketCursor) Err() error { return c.err }

// All returns a sequence over the populated buckets of b.
func All(b Buckets) iter.Seq2[Bucket, error] {
	return func(yield func(Bucket, error) bool) {
		c := NewBucketCursor(b)
		for c.Next() {
			if !yield(c.Bucket(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(Bucket{}, err)
		}
	}
}
