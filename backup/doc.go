// Package backup exports volumes to a blobstore.BlobStore and restores them.
//
// Each export of volume "users" produces three blobs:
//
//	users/DATA-000003.zst       zstd stream of the raw volume bytes
//	users/MANIFEST-000003.json  size, CRC32C checksum, serializer table
//	users/CURRENT               name of the latest manifest
//
// CURRENT is written last, so a crashed export never becomes visible.
// Restore follows CURRENT, verifies the checksum and rebuilds the target
// volume. With blobstore/s3.DDBCommitStore the CURRENT write is a
// conditional put and concurrent exporters of the same volume cannot
// overwrite each other's version.
package backup
