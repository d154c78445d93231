package hashdir

import (
	"errors"
	"fmt"
	"iter"
)

// View selects which sub-map accessor a cursor drains.
type View int

const (
	// ViewEntries yields key/value pairs.
	ViewEntries View = iota
	// ViewReferences yields record references.
	ViewReferences
)

// ErrNoCurrent is returned by Cursor.Remove before Next or after removal.
var ErrNoCurrent = errors.New("hashdir: cursor has no current key")

// Cursor chains bucket iteration with per-bucket sub-map iteration. It is
// not restartable.
type Cursor[K comparable, V any] struct {
	m       *Map[K, V]
	view    View
	buckets *BucketCursor

	nextEntry func() (Entry[K, V], error, bool)
	nextRef   func() (Reference[K], error, bool)
	stop      func()

	entry   Entry[K, V]
	ref     Reference[K]
	current bool
	err     error
}

func newCursor[K comparable, V any](m *Map[K, V], view View) *Cursor[K, V] {
	return &Cursor[K, V]{
		m:       m,
		view:    view,
		buckets: NewBucketCursor(m.buckets),
	}
}

// Next advances to the next logical key.
func (c *Cursor[K, V]) Next() bool {
	c.current = false
	if c.err != nil {
		return false
	}
	for {
		if c.stop != nil {
			ok, err := c.advance()
			if err != nil {
				c.err = err
				c.release()
				return false
			}
			if ok {
				c.current = true
				return true
			}
			c.release()
		}

		if !c.buckets.Next() {
			c.err = c.buckets.Err()
			return false
		}
		if err := c.attach(c.buckets.Bucket()); err != nil {
			c.err = err
			return false
		}
	}
}

func (c *Cursor[K, V]) advance() (bool, error) {
	if c.view == ViewReferences {
		r, err, ok := c.nextRef()
		if ok && err == nil {
			c.ref = r
			c.entry = Entry[K, V]{Key: r.Key}
		}
		return ok, err
	}
	e, err, ok := c.nextEntry()
	if ok && err == nil {
		c.entry = e
		c.ref = Reference[K]{Key: e.Key}
	}
	return ok, err
}

func (c *Cursor[K, V]) attach(b Bucket) error {
	sm, err := c.m.factory(c.m.s, b.Root, true)
	if err != nil {
		return fmt.Errorf("hashdir: attach sub-map of bucket %d at %d: %w", b.Hash, b.Root, err)
	}
	if c.view == ViewReferences {
		c.nextRef, c.stop = iter.Pull2(sm.References())
	} else {
		c.nextEntry, c.stop = iter.Pull2(sm.Entries())
	}
	return nil
}

func (c *Cursor[K, V]) release() {
	if c.stop != nil {
		c.stop()
	}
	c.stop, c.nextEntry, c.nextRef = nil, nil, nil
}

// Entry returns the current entry. In the reference view only Key is set.
func (c *Cursor[K, V]) Entry() Entry[K, V] { return c.entry }

// Reference returns the current reference. In the entry view only Key is set.
func (c *Cursor[K, V]) Reference() Reference[K] { return c.ref }

// Remove deletes the current logical key from the map.
func (c *Cursor[K, V]) Remove() error {
	if !c.current {
		return ErrNoCurrent
	}
	c.current = false
	_, err := c.m.Remove(c.entry.Key)
	return err
}

// Err returns the first error encountered.
func (c *Cursor[K, V]) Err() error { return c.err }

// Close releases the cursor. It is safe to call more than once.
func (c *Cursor[K, V]) Close() {
	c.release()
	c.current = false
}
