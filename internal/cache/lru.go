package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/diskmap/resource"
)

// LRU implements a simple entry-bounded LRU Cache.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	capacity  int
	items     map[K]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU creates a new LRU cache holding at most capacity entries.
// If rc is provided, it will be used to track memory usage.
func NewLRU[K comparable, V any](capacity int, rc *resource.Controller) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity:  capacity,
		items:     make(map[K]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached value.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set caches a value.
func (c *LRU[K, V]) Set(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*entry[K, V]).value = v
		return
	}

	for c.evictList.Len() >= c.capacity {
		c.removeElement(c.evictList.Back())
	}

	// If the global controller denies the memory, the value is simply not
	// cached; the caller re-reads it from the volume later.
	if c.rc != nil && !c.rc.TryAcquireMemory(EntryCost) {
		return
	}

	element := c.evictList.PushFront(&entry[K, V]{key, v})
	c.items[key] = element
}

// Delete removes a single entry.
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}
}

// Purge removes every entry.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rc != nil {
		c.rc.ReleaseMemory(int64(c.evictList.Len()) * EntryCost)
	}
	c.items = make(map[K]*list.Element)
	c.evictList.Init()
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns hit/miss counters.
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LRU[K, V]) removeElement(e *list.Element) {
	if e == nil {
		return
	}
	c.evictList.Remove(e)
	kv := e.Value.(*entry[K, V])
	delete(c.items, kv.key)
	if c.rc != nil {
		c.rc.ReleaseMemory(EntryCost)
	}
}
