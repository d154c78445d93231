package cache

// Cache is a bounded key/value cache. Implementations are safe for
// concurrent use.
type Cache[K comparable, V any] interface {
	// Get returns a cached value. ok=false if missing.
	Get(key K) (v V, ok bool)
	// Set caches a value, evicting the least recently used entry if full.
	Set(key K, v V)
	// Delete removes a single entry.
	Delete(key K)
	// Purge removes every entry.
	Purge()
	// Len returns the number of cached entries.
	Len() int
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}

// EntryCost is the number of bytes charged to the resource controller per
// cached entry (key, value, list element and map slot overhead).
const EntryCost = 64
