package hash

import (
	"hash"
	"hash/crc32"

	"github.com/cespare/xxhash"
)

// crc32cTable is pre-computed for CRC32-Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the CRC32C checksum of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewChecksum returns a streaming CRC32C hash.Hash32.
func NewChecksum() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// Sum64 returns the xxHash64 digest of b.
func Sum64(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// Sum64String returns the xxHash64 digest of s without copying it.
func Sum64String(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Reduce maps a 64-bit hash onto [0, slots).
func Reduce(h uint64, slots int) int {
	if slots <= 0 {
		return 0
	}
	return int(h % uint64(slots))
}
