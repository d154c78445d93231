// Package hashdir implements the hash directory of a disk-backed map: a
// fixed-capacity array of bucket roots allocated once inside a volume.
//
// A directory maps an integer hash in [0, 10^loadFactor) to the root offset
// of an opaque per-bucket sub-map. Its on-volume block, at Header.FirstNode,
// is laid out as
//
//	offset 0:          int32    bucket count
//	offset 4:          int64[N+1] bucket roots (0 = empty)
//	offset 4+8*(N+1):  int32[N+1] bucket order (order index -> hash)
//
// where N = 10^loadFactor. The order array records buckets in the order
// they were first populated, so iteration never scans empty slots.
//
// Cached puts a bounded LRU in front of both arrays. Map layers logical
// keys on top of any Buckets implementation through a SubMapFactory.
package hashdir
