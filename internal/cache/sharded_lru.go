package cache

import (
	"hash/maphash"

	"github.com/hupe1980/diskmap/resource"
)

const numShards = 64

// ShardedLRU is a sharded LRU cache for high-concurrency workloads.
// It distributes entries across 64 shards to reduce lock contention.
type ShardedLRU[K comparable, V any] struct {
	shards [numShards]*LRU[K, V]
	seed   maphash.Seed
}

// New returns a cache holding at most capacity entries: a ShardedLRU when
// every shard gets at least one entry, a single LRU otherwise.
func New[K comparable, V any](capacity int, rc *resource.Controller) Cache[K, V] {
	if capacity < numShards {
		return NewLRU[K, V](capacity, rc)
	}
	return NewShardedLRU[K, V](capacity, rc)
}

// NewShardedLRU creates a new sharded LRU cache.
// The capacity is divided evenly across all shards; each shard holds at
// least one entry, so the effective minimum is 64.
func NewShardedLRU[K comparable, V any](capacity int, rc *resource.Controller) *ShardedLRU[K, V] {
	shardCapacity := capacity / numShards
	if shardCapacity < 1 {
		shardCapacity = 1
	}

	s := &ShardedLRU[K, V]{
		seed: maphash.MakeSeed(),
	}
	for i := range numShards {
		s.shards[i] = NewLRU[K, V](shardCapacity, rc)
	}
	return s
}

func (s *ShardedLRU[K, V]) shard(key K) *LRU[K, V] {
	return s.shards[maphash.Comparable(s.seed, key)%numShards]
}

// Get returns a cached value.
func (s *ShardedLRU[K, V]) Get(key K) (V, bool) {
	return s.shard(key).Get(key)
}

// Set caches a value.
func (s *ShardedLRU[K, V]) Set(key K, v V) {
	s.shard(key).Set(key, v)
}

// Delete removes a single entry.
func (s *ShardedLRU[K, V]) Delete(key K) {
	s.shard(key).Delete(key)
}

// Purge empties all shards.
func (s *ShardedLRU[K, V]) Purge() {
	for i := range numShards {
		s.shards[i].Purge()
	}
}

// Len returns the total number of entries across all shards.
func (s *ShardedLRU[K, V]) Len() int {
	var total int
	for i := range numShards {
		total += s.shards[i].Len()
	}
	return total
}

// Stats returns aggregated hit/miss statistics.
func (s *ShardedLRU[K, V]) Stats() (hits, misses int64) {
	for i := range numShards {
		h, m := s.shards[i].Stats()
		hits += h
		misses += m
	}
	return hits, misses
}
