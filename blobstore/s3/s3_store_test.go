package s3

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/diskmap/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegration_S3Store runs against the bucket in S3_BUCKET using the
// default AWS credential chain.
func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("S3_BUCKET not set")
	}

	ctx := context.Background()
	store, err := New(ctx, bucket,
		WithPrefix(fmt.Sprintf("diskmap-it-%d/", time.Now().UnixNano())),
		WithUploadConfig(UploadConfig{PartSize: 5 << 20, Concurrency: 2, EnableChecksum: true}),
	)
	require.NoError(t, err)

	// 12 MiB forces a three-part multipart upload.
	data := make([]byte, 12<<20)
	_, _ = rand.Read(data)

	w, err := store.Create(ctx, "vol/DATA-000001.zst")
	require.NoError(t, err)
	_, err = io.Copy(w, bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	t.Cleanup(func() { _ = store.Delete(ctx, "vol/DATA-000001.zst") })

	require.NoError(t, store.Put(ctx, "vol/CURRENT", []byte("vol/MANIFEST-000001.json")))
	t.Cleanup(func() { _ = store.Delete(ctx, "vol/CURRENT") })

	names, err := store.List(ctx, "vol/")
	require.NoError(t, err)
	assert.Equal(t, []string{"vol/CURRENT", "vol/DATA-000001.zst"}, names)

	b, err := store.Open(ctx, "vol/DATA-000001.zst")
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, 4096)
	_, err = b.ReadAt(ctx, buf, 5<<20-100)
	require.NoError(t, err)
	assert.Equal(t, data[5<<20-100:5<<20-100+4096], buf)

	ptr, err := blobstore.ReadAll(ctx, store, "vol/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "vol/MANIFEST-000001.json", string(ptr))

	_, err = store.Open(ctx, "vol/missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
