package resource

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Limit exceeded
	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireMemory(1<<40))
	assert.True(t, c.TryAcquireMemory(1))
	c.ReleaseMemory(1)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.NoError(t, c.AcquireBackground(context.Background()))
	assert.True(t, c.TryAcquireBackground())
	c.ReleaseBackground()
	assert.NoError(t, c.AcquireIO(context.Background(), 1<<30))
	assert.True(t, c.TryAcquireIO(1<<30))
}

func TestController_Concurrency(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})

	require.NoError(t, c.AcquireBackground(t.Context()))
	require.NoError(t, c.AcquireBackground(t.Context()))
	assert.False(t, c.TryAcquireBackground())

	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
}

func TestController_IOLargerThanBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 1.5 bursts: the first burst is immediately available, the rest waits ~0.5s.
	require.NoError(t, c.AcquireIO(ctx, 3<<19))
}

func TestController_IOCancelled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1024})

	require.True(t, c.TryAcquireIO(1024))
	assert.False(t, c.TryAcquireIO(1024))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.AcquireIO(ctx, 10))
}

func TestRateLimitedReaderWriter(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	ctx := context.Background()

	var sink bytes.Buffer
	w := NewRateLimitedWriter(ctx, &sink, c)
	n, err := w.Write([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	r := NewRateLimitedReader(ctx, &sink, c)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(out))
}
