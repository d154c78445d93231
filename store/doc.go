// Package store implements volumes: growable, allocation-based byte address
// spaces that back every hash directory and record of diskmap.
//
// # Layout
//
// Offset 0 of every volume holds an 8-byte little-endian int64 equal to the
// number of bytes allocated so far (the size marker). Allocate reserves
// space at the end of the volume and persists the new marker:
//
//	s, _ := store.OpenFile("users.vol")
//	pos, _ := s.Allocate(128)
//	_ = s.WriteAt(record, pos)
//
// # Backends
//
//   - [FileStore]: positional system calls against a plain file
//   - [MappedStore]: the file is mapped in fixed-size slices on first touch
//   - [MemoryStore]: the mapped slicing logic over heap buffers, no durability
//   - [EncryptedStore]: AES-GCM sealing of object payloads, wrapping a
//     FileStore or MappedStore
//
// # Objects
//
// WriteObject/ReadObject encode values through a [Serializers] table. Types
// implementing encoding.BinaryMarshaler describe themselves; everything else
// goes through the table's generic codec (go-json by default).
//
// # Not found
//
// Reading at or beyond the allocated size is not an error: ReadAt returns a
// nil slice and ReadObject returns ErrNotFound.
package store
