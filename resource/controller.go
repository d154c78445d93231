package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the
// configured memory limit.
var ErrMemoryLimitExceeded = errors.New("resource: memory limit exceeded")

// Config holds resource limits. Zero values mean unlimited, except
// MaxBackgroundWorkers which defaults to 1.
type Config struct {
	// MemoryLimitBytes bounds heap slices and cache entries.
	MemoryLimitBytes int64

	// MaxBackgroundWorkers bounds concurrent background jobs such as
	// volume exports.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec throttles backup and restore streams.
	IOLimitBytesPerSec int64
}

// Controller manages process-wide limits shared by volumes, caches and
// backup jobs. A nil *Controller imposes no limits.
type Controller struct {
	mem     memoryBudget
	workers *semaphore.Weighted
	io      *rate.Limiter // nil if unlimited
}

// memoryBudget tracks reservations; sem is nil when only tracking.
type memoryBudget struct {
	limit int64
	sem   *semaphore.Weighted
	used  atomic.Int64
}

func (m *memoryBudget) reserve(n int64) bool {
	if m.sem != nil && !m.sem.TryAcquire(n) {
		return false
	}
	m.used.Add(n)
	return true
}

func (m *memoryBudget) release(n int64) {
	if m.sem != nil {
		m.sem.Release(n)
	}
	m.used.Add(-n)
}

// NewController creates a controller enforcing cfg.
func NewController(cfg Config) *Controller {
	c := &Controller{
		workers: semaphore.NewWeighted(max(cfg.MaxBackgroundWorkers, 1)),
	}
	c.mem.limit = cfg.MemoryLimitBytes
	if cfg.MemoryLimitBytes > 0 {
		c.mem.sem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if n := cfg.IOLimitBytesPerSec; n > 0 {
		c.io = rate.NewLimiter(rate.Limit(n), int(n))
	}
	return c
}

// AcquireMemory reserves bytes or fails with ErrMemoryLimitExceeded.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c.TryAcquireMemory(bytes) {
		return nil
	}
	return ErrMemoryLimitExceeded
}

// TryAcquireMemory reserves bytes and reports whether it succeeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	return c.mem.reserve(bytes)
}

// ReleaseMemory returns a reservation made by AcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.mem.release(bytes)
}

// MemoryUsage returns the reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.mem.used.Load()
}

// MemoryLimit returns the memory limit, 0 if unlimited.
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.mem.limit
}

// AcquireBackground blocks until a worker slot is free or ctx is done.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireBackground takes a worker slot if one is free.
func (c *Controller) TryAcquireBackground() bool {
	return c == nil || c.workers.TryAcquire(1)
}

// ReleaseBackground frees a worker slot.
func (c *Controller) ReleaseBackground() {
	if c != nil {
		c.workers.Release(1)
	}
}

// AcquireIO waits until bytes may be transferred. Requests larger than the
// limiter burst are charged in burst-sized steps.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.io == nil {
		return nil
	}
	for step := c.io.Burst(); bytes > 0; bytes -= step {
		if err := c.io.WaitN(ctx, min(bytes, step)); err != nil {
			return err
		}
	}
	return nil
}

// TryAcquireIO charges bytes only if the tokens are available now.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.io == nil {
		return true
	}
	return c.io.AllowN(time.Now(), bytes)
}
