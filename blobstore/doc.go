// Package blobstore provides storage abstraction for volume backups.
//
// BlobStore is the interface for reading and writing immutable blobs
// (volume snapshots, manifests). Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap reads and atomic writes
//   - MemoryStore: In-process, for tests
//   - s3.Store: Amazon S3 with range reads and parallel uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)            // Open for reading
//	    Create(ctx, name) (WritableBlob, error)  // Create for writing
//	    Put(ctx, name, data) error               // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
