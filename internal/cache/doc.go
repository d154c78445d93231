// Package cache provides bounded LRU caches for hot directory metadata.
//
// The bucket-root cache keeps two small mirrors of on-volume arrays
// (hash -> root offset and allocation order -> hash). Entries are pure
// performance hints: an evicted entry is re-read from the volume on the
// next lookup with no semantic difference.
//
// Key features:
//   - Generic LRU with entry-count capacity
//   - 64-way sharding (ShardedLRU) to keep lock contention low
//   - Optional ResourceController accounting of entry memory
package cache
