package hashdir

import (
	"strconv"
	"sync"

	"github.com/hupe1980/diskmap/internal/cache"
	"golang.org/x/sync/singleflight"
)

// CacheStats reports bucket cache effectiveness.
type CacheStats struct {
	RootHits    int64
	RootMisses  int64
	OrderHits   int64
	OrderMisses int64
	Entries     int
}

// Cached fronts a Directory with two bounded caches: hash -> root and
// order index -> hash. Entries are evicted at will and reloaded from the
// volume on the next lookup, so results never differ from the directory's.
//
// Insert and Update set the cache entry before the volume write. Misses
// are filled under a read lock so a fill never overwrites a newer write.
type Cached struct {
	dir    *Directory
	roots  cache.Cache[int, int64]
	order  cache.Cache[int, int]
	flight singleflight.Group
	mu     sync.RWMutex
}

var _ Buckets = (*Cached)(nil)

// NewCached wraps dir.
func NewCached(dir *Directory, optFns ...Option) *Cached {
	opts := applyOptions(optFns)
	return &Cached{
		dir:   dir,
		roots: cache.New[int, int64](opts.cacheCapacity, opts.rc),
		order: cache.New[int, int](opts.cacheCapacity, opts.rc),
	}
}

// Directory returns the wrapped directory.
func (c *Cached) Directory() *Directory { return c.dir }

// Slots implements Buckets.
func (c *Cached) Slots() int { return c.dir.Slots() }

// Count implements Buckets.
func (c *Cached) Count() int { return c.dir.Count() }

// Reference implements Buckets.
func (c *Cached) Reference(hash int) (int64, error) {
	if root, ok := c.roots.Get(hash); ok {
		return root, nil
	}
	v, err, _ := c.flight.Do("r"+strconv.Itoa(hash), func() (any, error) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		root, err := c.dir.Reference(hash)
		if err != nil {
			return int64(0), err
		}
		c.roots.Set(hash, root)
		return root, nil
	})
	return v.(int64), err
}

// Identifier implements Buckets.
func (c *Cached) Identifier(index int) (int, error) {
	if hash, ok := c.order.Get(index); ok {
		return hash, nil
	}
	v, err, _ := c.flight.Do("o"+strconv.Itoa(index), func() (any, error) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		hash, err := c.dir.Identifier(index)
		if err != nil {
			return 0, err
		}
		c.order.Set(index, hash)
		return hash, nil
	})
	return v.(int), err
}

// Insert implements Buckets.
func (c *Cached) Insert(hash int, root int64) (int64, error) {
	if err := c.dir.checkHash(hash); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots.Set(hash, root)

	index := -1
	_, err := c.dir.insert(hash, root, func(i int) {
		index = i
		c.order.Set(i, hash)
	})
	if err != nil {
		c.roots.Delete(hash)
		if index >= 0 {
			c.order.Delete(index)
		}
		return 0, err
	}
	return root, nil
}

// Update implements Buckets.
func (c *Cached) Update(hash int, root int64) (int64, error) {
	if err := c.dir.checkHash(hash); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots.Set(hash, root)
	if _, err := c.dir.Update(hash, root); err != nil {
		c.roots.Delete(hash)
		return 0, err
	}
	return root, nil
}

// Clear empties both caches and the directory.
func (c *Cached) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots.Purge()
	c.order.Purge()
	return c.dir.Clear()
}

// Stats returns cache statistics.
func (c *Cached) Stats() CacheStats {
	rh, rm := c.roots.Stats()
	oh, om := c.order.Stats()
	return CacheStats{
		RootHits:    rh,
		RootMisses:  rm,
		OrderHits:   oh,
		OrderMisses: om,
		Entries:     c.roots.Len() + c.order.Len(),
	}
}
