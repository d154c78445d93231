package hashdir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCached_Transparent(t *testing.T) {
	s := openMemory(t)
	d, _ := newDirectory(t, s, 2)
	c := NewCached(d, WithCacheCapacity(4))

	for i := range 20 {
		_, err := c.Insert(i*3, int64(1000+i))
		require.NoError(t, err)
	}
	_, err := c.Update(6, 5555)
	require.NoError(t, err)

	// capacity 4 forces evictions; every read must still match the volume
	for hash := range c.Slots() {
		want, err := d.Reference(hash)
		require.NoError(t, err)
		got, err := c.Reference(hash)
		require.NoError(t, err)
		assert.Equal(t, want, got, "hash %d", hash)
	}
	assert.Equal(t, order(t, d), order(t, c))

	st := c.Stats()
	assert.Positive(t, st.RootMisses)
	assert.LessOrEqual(t, st.Entries, 2*4)
}

func TestCached_HitsAfterWrite(t *testing.T) {
	d, _ := newDirectory(t, openMemory(t), 1)
	c := NewCached(d)

	_, err := c.Insert(3, 100)
	require.NoError(t, err)

	root, err := c.Reference(3)
	require.NoError(t, err)
	assert.Equal(t, int64(100), root)
	hash, err := c.Identifier(0)
	require.NoError(t, err)
	assert.Equal(t, 3, hash)

	st := c.Stats()
	assert.Equal(t, int64(1), st.RootHits)
	assert.Equal(t, int64(1), st.OrderHits)
	assert.Zero(t, st.RootMisses)
}

func TestCached_Clear(t *testing.T) {
	d, _ := newDirectory(t, openMemory(t), 1)
	c := NewCached(d)

	_, err := c.Insert(5, 50)
	require.NoError(t, err)
	require.NoError(t, c.Clear())

	root, err := c.Reference(5)
	require.NoError(t, err)
	assert.Zero(t, root)
	assert.Zero(t, c.Count())

	_, err = c.Identifier(0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestCached_FailedInsertLeavesNoEntry(t *testing.T) {
	d, _ := newDirectory(t, openMemory(t), 1)
	c := NewCached(d)

	for i := range 10 {
		_, err := c.Insert(i, int64(i+1))
		require.NoError(t, err)
	}
	_, err := c.Update(2, 222)
	require.NoError(t, err)

	_, err = c.Insert(2, 999)
	assert.ErrorIs(t, err, ErrDirectoryFull)

	root, err := c.Reference(2)
	require.NoError(t, err)
	assert.Equal(t, int64(222), root)
}
