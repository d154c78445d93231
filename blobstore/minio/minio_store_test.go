package minio

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/diskmap/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Key(t *testing.T) {
	s := NewStore(nil, "bucket", "volumes/", WithPartSize(5<<20), WithContentType("x"))
	assert.Equal(t, "volumes/users.vol", s.key("users.vol"))
	assert.Equal(t, uint64(5<<20), s.putOptions().PartSize)
	assert.Equal(t, "x", s.putOptions().ContentType)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

// TestStore_Integration requires a running MinIO instance at MINIO_ENDPOINT.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	ctx := context.Background()
	store := NewStore(client, "test-diskmap", "test-prefix/")
	require.NoError(t, store.EnsureBucket(ctx))

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.txt", data))

	b, err := store.Open(ctx, "test.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, len(data))
	n, err := b.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := b.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, b.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.txt")

	require.NoError(t, store.Delete(ctx, "test.txt"))
	_, err = store.Open(ctx, "test.txt")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	wb, err := store.Create(ctx, "stream.txt")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	got, err := blobstore.ReadAll(ctx, store, "stream.txt")
	require.NoError(t, err)
	assert.Equal(t, "streamed data", string(got))

	_ = store.Delete(ctx, "stream.txt")
}
