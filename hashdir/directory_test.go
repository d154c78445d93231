package hashdir

import (
	"encoding/binary"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/diskmap/internal/fs"
	"github.com/hupe1980/diskmap/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) store.Store {
	t.Helper()
	s, err := store.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newDirectory(t *testing.T, s store.Store, lf int) (*Directory, *Header) {
	t.Helper()
	h := &Header{LoadFactor: lf}
	d, err := New(s, h)
	require.NoError(t, err)
	return d, h
}

func order(t *testing.T, b Buckets) []int {
	t.Helper()
	var out []int
	for i := range b.Count() {
		h, err := b.Identifier(i)
		require.NoError(t, err)
		out = append(out, h)
	}
	return out
}

func TestSlots(t *testing.T) {
	for lf, want := range map[int]int{1: 10, 2: 100, 6: 1_000_000, 10: 10_000_000_000} {
		got, err := Slots(lf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, lf := range []int{0, -1, 11} {
		_, err := Slots(lf)
		assert.ErrorIs(t, err, ErrInvalidLoadFactor)
	}
	assert.Equal(t, int64(4+11*8+11*4), BlockSize(10))
}

func TestDirectory_Scenario(t *testing.T) {
	s := openMemory(t)
	d, h := newDirectory(t, s, 1)

	assert.Equal(t, int64(store.MarkerSize), h.FirstNode)
	assert.Equal(t, store.MarkerSize+BlockSize(10), s.Size())

	_, err := d.Insert(3, 100)
	require.NoError(t, err)
	_, err = d.Insert(7, 200)
	require.NoError(t, err)

	root, err := d.Reference(3)
	require.NoError(t, err)
	assert.Equal(t, int64(100), root)
	root, err = d.Reference(7)
	require.NoError(t, err)
	assert.Equal(t, int64(200), root)
	root, err = d.Reference(0)
	require.NoError(t, err)
	assert.Zero(t, root)

	assert.Equal(t, 2, d.Count())
	assert.Equal(t, []int{3, 7}, order(t, d))

	raw, err := s.ReadAt(h.FirstNode, countSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(raw))
}

func TestDirectory_UpdateKeepsOrder(t *testing.T) {
	d, _ := newDirectory(t, openMemory(t), 2)

	_, err := d.Insert(42, 1000)
	require.NoError(t, err)
	_, err = d.Insert(5, 2000)
	require.NoError(t, err)

	_, err = d.Update(42, 3000)
	require.NoError(t, err)

	root, err := d.Reference(42)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), root)
	assert.Equal(t, 2, d.Count())
	assert.Equal(t, []int{42, 5}, order(t, d))
}

func TestDirectory_SlotStability(t *testing.T) {
	s := openMemory(t)
	d, _ := newDirectory(t, s, 2)

	_, err := d.Insert(9, 900)
	require.NoError(t, err)

	// unrelated allocations and writes on the same volume
	for range 10 {
		_, _, err := s.WriteObject(struct{ A int }{A: 1})
		require.NoError(t, err)
	}
	_, err = d.Insert(10, 1000)
	require.NoError(t, err)

	root, err := d.Reference(9)
	require.NoError(t, err)
	assert.Equal(t, int64(900), root)
}

func TestDirectory_FailedInsertKeepsCount(t *testing.T) {
	tests := []struct {
		name  string
		allow int64
	}{
		{"order write fails", 0},
		{"root write fails", orderSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faulty := fs.NewFaultyFS(nil)
			path := filepath.Join(t.TempDir(), "dir.db")
			s, err := store.OpenFile(path, store.WithFileSystem(faulty))
			require.NoError(t, err)

			d, h := newDirectory(t, s, 1)
			faulty.Inject("dir.db", fs.Fault{WriteBudget: faulty.Written(path) + tt.allow})

			_, err = d.Insert(3, 100)
			require.ErrorIs(t, err, fs.ErrInjected)
			assert.Zero(t, d.Count())

			faulty.Heal()
			root, err := d.Reference(3)
			require.NoError(t, err)
			assert.Zero(t, root)
			require.NoError(t, s.Close())

			s, err = store.OpenFile(path)
			require.NoError(t, err)
			defer s.Close()

			d, err = New(s, h)
			require.NoError(t, err)
			assert.Zero(t, d.Count())

			_, err = d.Insert(7, 200)
			require.NoError(t, err)
			assert.Equal(t, []int{7}, order(t, d))
		})
	}
}

func TestDirectory_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir.db")
	s, err := store.OpenFile(path)
	require.NoError(t, err)

	d, h := newDirectory(t, s, 3)
	_, err = d.Insert(123, 77)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.OpenFile(path)
	require.NoError(t, err)
	defer s.Close()

	d, err = New(s, h)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Count())
	root, err := d.Reference(123)
	require.NoError(t, err)
	assert.Equal(t, int64(77), root)

	bad := *h
	bad.FirstNode = s.Size()
	_, err = New(s, &bad)
	assert.ErrorIs(t, err, store.ErrCorrupt)
}

func TestDirectory_Bounds(t *testing.T) {
	d, _ := newDirectory(t, openMemory(t), 1)

	for _, hash := range []int{-1, 10, 1 << 40} {
		_, err := d.Reference(hash)
		assert.ErrorIs(t, err, ErrHashOutOfRange)
		_, err = d.Insert(hash, 1)
		assert.ErrorIs(t, err, ErrHashOutOfRange)
		_, err = d.Update(hash, 1)
		assert.ErrorIs(t, err, ErrHashOutOfRange)
	}
	_, err := d.Identifier(0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	for i := range 10 {
		_, err := d.Insert(i, int64(i+1))
		require.NoError(t, err)
	}
	_, err = d.Insert(0, 99)
	assert.ErrorIs(t, err, ErrDirectoryFull)
}

func TestDirectory_Clear(t *testing.T) {
	d, _ := newDirectory(t, openMemory(t), 1)
	for _, hash := range []int{4, 1, 8} {
		_, err := d.Insert(hash, int64(hash*10))
		require.NoError(t, err)
	}

	require.NoError(t, d.Clear())
	assert.Zero(t, d.Count())
	for _, hash := range []int{4, 1, 8} {
		root, err := d.Reference(hash)
		require.NoError(t, err)
		assert.Zero(t, root)
	}

	_, err := d.Insert(2, 20)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, order(t, d))
}

func TestDirectory_Occupied(t *testing.T) {
	d, _ := newDirectory(t, openMemory(t), 2)
	for _, hash := range []int{50, 3, 99} {
		_, err := d.Insert(hash, 1)
		require.NoError(t, err)
	}

	bm, err := d.Occupied()
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 50, 99}, bm.ToArray())
}

func TestDirectory_ConcurrentInsert(t *testing.T) {
	d, _ := newDirectory(t, openMemory(t), 3)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				hash := w*50 + i
				_, err := d.Insert(hash, int64(hash+1))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, d.Count())
	seen := make(map[int]bool)
	for _, h := range order(t, d) {
		assert.False(t, seen[h])
		seen[h] = true
		root, err := d.Reference(h)
		require.NoError(t, err)
		assert.Equal(t, int64(h+1), root)
	}
}
