package hashdir

import (
	"encoding/binary"

	"github.com/hupe1980/diskmap/internal/hash"
)

// Hasher maps a key to a 64-bit hash. Map reduces it onto the slot range.
type Hasher[K any] func(key K) uint64

// BytesHasher hashes byte keys with xxHash64.
func BytesHasher(key []byte) uint64 { return hash.Sum64(key) }

// StringHasher hashes string keys with xxHash64.
func StringHasher(key string) uint64 { return hash.Sum64String(key) }

// Int64Hasher hashes the little-endian encoding of key with xxHash64.
func Int64Hasher(key int64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	return hash.Sum64(b[:])
}

// Reduce maps h onto the slots a directory of the given size can address.
func Reduce(h uint64, slots int) int {
	return hash.Reduce(h, min(slots, MaxHash+1))
}
