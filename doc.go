// Package diskmap provides disk-backed hash maps for embedded databases.
//
// A map is a fixed-capacity hash directory living on a volume. The
// directory maps an integer hash to the root offset of a per-bucket
// sub-map; the sub-map itself is supplied by the caller.
//
// # Quick Start
//
//	m, _ := diskmap.Open("./data/users.map", 4) // 10^4 buckets
//	defer m.Close()
//
//	root, _ := m.Get(42)  // 0 if bucket 42 is empty
//	m.Put(42, subRoot)    // first population
//	m.Update(42, newRoot) // sub-map root moved
//
// # Backends
//
//	diskmap.Open(path, 4, diskmap.WithBackend(diskmap.BackendMapped))
//	diskmap.Open("", 4, diskmap.WithBackend(diskmap.BackendMemory))
//	diskmap.Open(path, 4,
//	    diskmap.WithBackend(diskmap.BackendEncryptedFile),
//	    diskmap.WithEncryptionKey(key))
//
// # Logical Keys
//
// Keyed layers typed keys over the directory:
//
//	users := diskmap.Keyed(m, hashdir.StringHasher, mySubMapFactory)
//	users.Put("alice", rec)
//	for e, err := range users.Entries() { ... }
//
// # Volume Layout
//
//	offset 0:   int64 allocated size
//	offset 8:   superblock (magic, version, load factor, directory offset,
//	            serializer table location)
//	firstNode:  hash directory block (see package hashdir)
package diskmap
