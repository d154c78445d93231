// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("volumes/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	manifest, err := backup.Export(ctx, m.Store(), store, "users")
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums
//   - Automatic pagination for listing
//   - DynamoDB-backed commit pointers for concurrent exporters (DDBCommitStore)
package s3
