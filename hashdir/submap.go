package hashdir

import (
	"iter"

	"github.com/hupe1980/diskmap/store"
)

// Entry is a key/value pair of a sub-map.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Reference ties a key to the volume position of its record.
type Reference[K comparable] struct {
	Key K
	Ref int64
}

// SubMap is the per-bucket ordered map a directory slot points to. This
// package allocates and records its root but does not implement it.
//
// Put and Remove return the root after the change; a root that moved is
// written back to the directory with Update.
type SubMap[K comparable, V any] interface {
	Root() int64
	Get(key K) (V, bool, error)
	Put(key K, value V) (root int64, err error)
	Remove(key K) (root int64, removed bool, err error)
	Entries() iter.Seq2[Entry[K, V], error]
	References() iter.Seq2[Reference[K], error]
}

// SubMapFactory attaches a sub-map to root on s. A zero root asks the
// factory to allocate a new one. headless requests a read-only attach
// that must not allocate.
type SubMapFactory[K comparable, V any] func(s store.Store, root int64, headless bool) (SubMap[K, V], error)
