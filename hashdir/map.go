package hashdir

import (
	"fmt"
	"iter"
	"sync"

	"github.com/hupe1980/diskmap/store"
)

// Map layers logical keys over a bucket directory. A key hashes to one
// bucket; collisions inside a bucket are resolved by its sub-map.
//
// Map is safe for concurrent use. Structural changes (populating a bucket
// or moving a root) are serialized.
type Map[K comparable, V any] struct {
	s       store.Store
	buckets Buckets
	hasher  Hasher[K]
	factory SubMapFactory[K, V]

	mu sync.Mutex
}

// NewMap creates a map over buckets whose sub-maps live on s.
func NewMap[K comparable, V any](s store.Store, buckets Buckets, hasher Hasher[K], factory SubMapFactory[K, V]) *Map[K, V] {
	return &Map[K, V]{
		s:       s,
		buckets: buckets,
		hasher:  hasher,
		factory: factory,
	}
}

// Buckets returns the underlying directory.
func (m *Map[K, V]) Buckets() Buckets { return m.buckets }

// Hash returns the bucket hash of key.
func (m *Map[K, V]) Hash(key K) int {
	return Reduce(m.hasher(key), m.buckets.Slots())
}

// Get returns the value stored for key.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	var zero V
	root, err := m.buckets.Reference(m.Hash(key))
	if err != nil || root == 0 {
		return zero, false, err
	}
	sm, err := m.factory(m.s, root, true)
	if err != nil {
		return zero, false, fmt.Errorf("hashdir: attach sub-map at %d: %w", root, err)
	}
	return sm.Get(key)
}

// Put stores value under key, populating the bucket on first use.
func (m *Map[K, V]) Put(key K, value V) error {
	h := m.Hash(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	root, err := m.buckets.Reference(h)
	if err != nil {
		return err
	}
	sm, err := m.factory(m.s, root, false)
	if err != nil {
		return fmt.Errorf("hashdir: attach sub-map at %d: %w", root, err)
	}
	newRoot, err := sm.Put(key, value)
	if err != nil {
		return err
	}

	switch {
	case root == 0:
		_, err = m.buckets.Insert(h, newRoot)
	case newRoot != root:
		_, err = m.buckets.Update(h, newRoot)
	}
	return err
}

// Remove deletes key and reports whether it was present. The bucket stays
// populated even when its sub-map becomes empty.
func (m *Map[K, V]) Remove(key K) (bool, error) {
	h := m.Hash(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	root, err := m.buckets.Reference(h)
	if err != nil || root == 0 {
		return false, err
	}
	sm, err := m.factory(m.s, root, false)
	if err != nil {
		return false, fmt.Errorf("hashdir: attach sub-map at %d: %w", root, err)
	}
	newRoot, removed, err := sm.Remove(key)
	if err != nil {
		return false, err
	}
	if newRoot != root {
		if _, err := m.buckets.Update(h, newRoot); err != nil {
			return false, err
		}
	}
	return removed, nil
}

// Clear empties the directory. Sub-map storage is not reclaimed.
func (m *Map[K, V]) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buckets.Clear()
}

// Cursor returns a cursor over every logical key using the given view.
func (m *Map[K, V]) Cursor(view View) *Cursor[K, V] {
	return newCursor(m, view)
}

// Entries returns a sequence over all key/value pairs.
func (m *Map[K, V]) Entries() iter.Seq2[Entry[K, V], error] {
	return func(yield func(Entry[K, V], error) bool) {
		c := m.Cursor(ViewEntries)
		defer c.Close()
		for c.Next() {
			if !yield(c.Entry(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(Entry[K, V]{}, err)
		}
	}
}

// Keys returns a sequence over all keys.
func (m *Map[K, V]) Keys() iter.Seq2[K, error] {
	return func(yield func(K, error) bool) {
		for e, err := range m.Entries() {
			if !yield(e.Key, err) {
				return
			}
		}
	}
}

// Values returns a sequence over all values.
func (m *Map[K, V]) Values() iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		for e, err := range m.Entries() {
			if !yield(e.Value, err) {
				return
			}
		}
	}
}

// References returns a sequence over the record references of all keys.
func (m *Map[K, V]) References() iter.Seq2[Reference[K], error] {
	return func(yield func(Reference[K], error) bool) {
		c := m.Cursor(ViewReferences)
		defer c.Close()
		for c.Next() {
			if !yield(c.Reference(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(Reference[K]{}, err)
		}
	}
}

// Collect materializes the map.
func (m *Map[K, V]) Collect() (map[K]V, error) {
	out := make(map[K]V)
	for e, err := range m.Entries() {
		if err != nil {
			return nil, err
		}
		out[e.Key] = e.Value
	}
	return out, nil
}
