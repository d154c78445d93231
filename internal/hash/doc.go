// Package hash provides the checksum and key-hashing primitives of diskmap.
//
// # Checksums
//
// Volume snapshots carry a CRC32-Castagnoli (CRC32C) checksum, which is
// hardware accelerated on x86 (SSE4.2) and ARM (CRC extension):
//
//	h := hash.NewChecksum()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum := h.Sum32()
//
// # Key hashing
//
// Logical keys are hashed with xxHash64 and reduced into the fixed slot
// range of a hash directory with Reduce.
package hash
