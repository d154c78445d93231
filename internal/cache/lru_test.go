package cache

import (
	"sync"
	"testing"

	"github.com/hupe1980/diskmap/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[int, int64](2, nil)

	c.Set(1, 100)
	c.Set(2, 200)
	_, ok := c.Get(1) // 1 becomes most recent
	require.True(t, ok)

	c.Set(3, 300) // evicts 2

	_, ok = c.Get(2)
	assert.False(t, ok)
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, int64(100), v)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_UpdateAndDelete(t *testing.T) {
	c := NewLRU[int, int64](4, nil)
	c.Set(7, 1)
	c.Set(7, 2)

	v, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, 1, c.Len())

	c.Delete(7)
	_, ok = c.Get(7)
	assert.False(t, ok)

	c.Set(1, 1)
	c.Set(2, 2)
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[int, int64](10, nil)
	c.Set(1, 1)
	c.Get(1) // Hit
	c.Get(2) // Miss

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_ResourceController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 2 * EntryCost})
	c := NewLRU[int, int64](10, rc)

	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3) // denied by the controller, not cached

	_, ok := c.Get(3)
	assert.False(t, ok)
	assert.Equal(t, int64(2*EntryCost), rc.MemoryUsage())

	c.Purge()
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestShardedLRU_BasicOperations(t *testing.T) {
	c := NewShardedLRU[int, int64](1024, nil)

	c.Set(42, 4200)
	got, ok := c.Get(42)
	require.True(t, ok)
	assert.Equal(t, int64(4200), got)

	_, ok = c.Get(999)
	assert.False(t, ok)

	c.Delete(42)
	_, ok = c.Get(42)
	assert.False(t, ok)
}

func TestShardedLRU_Concurrent(t *testing.T) {
	c := NewShardedLRU[int, int64](64*1024, nil)

	const numGoroutines = 50
	const numOpsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for g := range numGoroutines {
		go func(id int) {
			defer wg.Done()
			for i := range numOpsPerGoroutine {
				key := id*numOpsPerGoroutine + i
				c.Set(key, int64(key))
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	hits, misses := c.Stats()
	assert.Equal(t, int64(numGoroutines*numOpsPerGoroutine), hits+misses)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func BenchmarkShardedLRU_Get(b *testing.B) {
	c := NewShardedLRU[int, int64](64*1024, nil)
	for i := range 1000 {
		c.Set(i, int64(i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Get(i % 1000)
			i++
		}
	})
}

func TestNew_RespectsSmallCapacity(t *testing.T) {
	small := New[int, int](4, nil)
	assert.IsType(t, &LRU[int, int]{}, small)
	for i := range 100 {
		small.Set(i, i)
	}
	assert.Equal(t, 4, small.Len())

	large := New[int, int](numShards*2, nil)
	assert.IsType(t, &ShardedLRU[int, int]{}, large)
	for i := range 1000 {
		large.Set(i, i)
	}
	assert.LessOrEqual(t, large.Len(), numShards*2)
}
