package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	path := filepath.Join(t.TempDir(), "ro.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	n, err = m.ReadAt(make([]byte, 10), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)

	assert.Equal(t, ErrReadOnly, m.Sync())
}

func TestMmap_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
}

func TestMmap_WritableRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rw.bin")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(2*Granularity))

	m, err := Map(f, Granularity, Granularity, true)
	require.NoError(t, err)
	require.NoError(t, m.Advise(AdviceRandom))

	copy(m.Bytes()[10:], "sliced")
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	buf := make([]byte, 6)
	_, err = f.ReadAt(buf, Granularity+10)
	require.NoError(t, err)
	assert.Equal(t, "sliced", string(buf))
}

func TestMmap_InvalidArguments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	_, err = Map(f, 0, 0, true)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Map(f, 100, Granularity, true)
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestMmap_AfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.bin")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.Equal(t, ErrClosed, m.Advise(AdviceRandom))
	assert.Equal(t, ErrClosed, m.Sync())
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.Equal(t, ErrClosed, err)
}
