package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	w, err := store.Create(ctx, "a/1")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	_, err = store.Open(ctx, "a/1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())

	b, err := store.Open(ctx, "a/1")
	require.NoError(t, err)
	assert.Equal(t, int64(11), b.Size())

	buf := make([]byte, 5)
	_, err = b.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf))

	_, err = b.ReadAt(ctx, buf, 11)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, b.Close())

	data := []byte("xyz")
	require.NoError(t, store.Put(ctx, "a/2", data))
	data[0] = 'q'
	require.NoError(t, store.Put(ctx, "b/1", nil))

	got, err := ReadAll(ctx, store, "a/2")
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(got))

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2"}, names)

	require.NoError(t, store.Delete(ctx, "a/1"))
	require.NoError(t, store.Delete(ctx, "a/1"))
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/2", "b/1"}, names)
}
