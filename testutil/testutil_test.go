package testutil

import (
	"testing"

	"github.com/hupe1980/diskmap/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG_Deterministic(t *testing.T) {
	a, b := NewRNG(4711), NewRNG(4711)
	assert.Equal(t, a.Bytes(32), b.Bytes(32))
	assert.Equal(t, a.Key(10), b.Key(10))

	a.Reset()
	b.Reset()
	assert.Equal(t, a.Intn(1000), b.Intn(1000))
	assert.Equal(t, int64(4711), a.Seed())
}

func TestRNG_Keys(t *testing.T) {
	keys := NewRNG(1).Keys(200, 6)
	assert.Len(t, keys, 200)

	seen := make(map[string]bool)
	for _, k := range keys {
		assert.Len(t, k, 6)
		assert.False(t, seen[k])
		seen[k] = true
	}
}

func TestSortedSubMap(t *testing.T) {
	s, err := store.OpenMemory("submap")
	require.NoError(t, err)
	defer s.Close()

	empty, err := OpenSortedSubMap[string, int](s, 0, true)
	require.NoError(t, err)
	assert.Zero(t, empty.Root())

	m, err := OpenSortedSubMap[string, int](s, 0, false)
	require.NoError(t, err)
	r0 := m.Root()
	assert.NotZero(t, r0)

	r1, err := m.Put("b", 2)
	require.NoError(t, err)
	assert.NotEqual(t, r0, r1)
	_, err = m.Put("a", 1)
	require.NoError(t, err)
	_, err = m.Put("b", 20)
	require.NoError(t, err)

	reopened, err := OpenSortedSubMap[string, int](s, m.Root(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())

	v, ok, err := reopened.Get("b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20, v)

	var keys []string
	for e, err := range reopened.Entries() {
		require.NoError(t, err)
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"a", "b"}, keys)

	for r, err := range reopened.References() {
		require.NoError(t, err)
		assert.NotZero(t, r.Ref)
	}

	_, removed, err := m.Remove("a")
	require.NoError(t, err)
	assert.True(t, removed)
	_, removed, err = m.Remove("zzz")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, m.Len())
}
