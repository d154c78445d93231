package testutil

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"iter"
	"slices"

	"github.com/hupe1980/diskmap/hashdir"
	"github.com/hupe1980/diskmap/store"
)

// rootSize is the [node position:int64][node size:int32] root record.
const rootSize = 12

type nodeEntry[K cmp.Ordered] struct {
	Key  K     `json:"k"`
	Ref  int64 `json:"r"`
	Size int   `json:"s"`
}

type node[K cmp.Ordered] struct {
	Entries []nodeEntry[K] `json:"e"`
}

// SortedSubMap is a copy-on-write sorted sub-map. Every value is its own
// volume object; a node object lists keys in order with their record
// references. Each mutation writes a new node and a new root, so the root
// moves on every Put and Remove.
type SortedSubMap[K cmp.Ordered, V any] struct {
	s    store.Store
	root int64
	node node[K]
}

var _ hashdir.SubMap[string, int] = (*SortedSubMap[string, int])(nil)

// SortedSubMapFactory returns a hashdir.SubMapFactory for SortedSubMap.
func SortedSubMapFactory[K cmp.Ordered, V any]() hashdir.SubMapFactory[K, V] {
	return func(s store.Store, root int64, headless bool) (hashdir.SubMap[K, V], error) {
		return OpenSortedSubMap[K, V](s, root, headless)
	}
}

// OpenSortedSubMap attaches to root, allocating an empty sub-map when root
// is 0 and headless is false.
func OpenSortedSubMap[K cmp.Ordered, V any](s store.Store, root int64, headless bool) (*SortedSubMap[K, V], error) {
	m := &SortedSubMap[K, V]{s: s, root: root}
	if root == 0 {
		if headless {
			return m, nil
		}
		if err := m.writeRoot(); err != nil {
			return nil, err
		}
		return m, nil
	}

	b, err := s.ReadAt(root, rootSize)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: sub-map root %d", store.ErrNotFound, root)
	}
	pos := int64(binary.LittleEndian.Uint64(b))
	size := int(binary.LittleEndian.Uint32(b[8:]))
	if pos == 0 {
		return m, nil
	}
	if err := s.ReadObject(pos, size, &m.node); err != nil {
		return nil, err
	}
	return m, nil
}

// Root implements hashdir.SubMap.
func (m *SortedSubMap[K, V]) Root() int64 { return m.root }

// Len returns the number of keys.
func (m *SortedSubMap[K, V]) Len() int { return len(m.node.Entries) }

func (m *SortedSubMap[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(m.node.Entries, key, func(e nodeEntry[K], k K) int {
		return cmp.Compare(e.Key, k)
	})
}

// Get implements hashdir.SubMap.
func (m *SortedSubMap[K, V]) Get(key K) (V, bool, error) {
	var v V
	i, ok := m.search(key)
	if !ok {
		return v, false, nil
	}
	e := m.node.Entries[i]
	if err := m.s.ReadObject(e.Ref, e.Size, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Put implements hashdir.SubMap.
func (m *SortedSubMap[K, V]) Put(key K, value V) (int64, error) {
	ref, size, err := m.s.WriteObject(value)
	if err != nil {
		return 0, err
	}
	e := nodeEntry[K]{Key: key, Ref: ref, Size: size}

	entries := slices.Clone(m.node.Entries)
	if i, ok := m.search(key); ok {
		entries[i] = e
	} else {
		entries = slices.Insert(entries, i, e)
	}
	m.node.Entries = entries
	if err := m.writeRoot(); err != nil {
		return 0, err
	}
	return m.root, nil
}

// Remove implements hashdir.SubMap.
func (m *SortedSubMap[K, V]) Remove(key K) (int64, bool, error) {
	i, ok := m.search(key)
	if !ok {
		return m.root, false, nil
	}
	m.node.Entries = slices.Delete(slices.Clone(m.node.Entries), i, i+1)
	if err := m.writeRoot(); err != nil {
		return 0, false, err
	}
	return m.root, true, nil
}

// Entries implements hashdir.SubMap. It iterates the keys present when
// iteration starts.
func (m *SortedSubMap[K, V]) Entries() iter.Seq2[hashdir.Entry[K, V], error] {
	entries := m.node.Entries
	return func(yield func(hashdir.Entry[K, V], error) bool) {
		for _, e := range entries {
			var v V
			if err := m.s.ReadObject(e.Ref, e.Size, &v); err != nil {
				yield(hashdir.Entry[K, V]{}, err)
				return
			}
			if !yield(hashdir.Entry[K, V]{Key: e.Key, Value: v}, nil) {
				return
			}
		}
	}
}

// References implements hashdir.SubMap.
func (m *SortedSubMap[K, V]) References() iter.Seq2[hashdir.Reference[K], error] {
	entries := m.node.Entries
	return func(yield func(hashdir.Reference[K], error) bool) {
		for _, e := range entries {
			if !yield(hashdir.Reference[K]{Key: e.Key, Ref: e.Ref}, nil) {
				return
			}
		}
	}
}

// writeRoot persists the node and a new root pointing at it.
func (m *SortedSubMap[K, V]) writeRoot() error {
	var pos int64
	var size int
	if len(m.node.Entries) > 0 {
		var err error
		pos, size, err = m.s.WriteObject(&m.node)
		if err != nil {
			return err
		}
	}

	root, err := m.s.Allocate(rootSize)
	if err != nil {
		return err
	}
	var b [rootSize]byte
	binary.LittleEndian.PutUint64(b[:], uint64(pos))
	binary.LittleEndian.PutUint32(b[8:], uint32(size))
	if err := m.s.WriteAt(b[:], root); err != nil {
		return err
	}
	m.root = root
	return nil
}
