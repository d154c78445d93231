// Package resource implements the Controller for process-wide limits.
//
// The Controller manages three resource types:
//
//   - Memory: heap slices of in-memory volumes and cache entries (non-blocking, fail-fast)
//   - Concurrency: background workers such as concurrent volume exports
//   - IO: token-bucket rate limit for bulk transfers (backup/restore)
//
// A nil *Controller is valid and imposes no limits, so components can take
// an optional controller without nil checks at every call site.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	if err := rc.AcquireMemory(sliceSize); err != nil {
//	    // ErrMemoryLimitExceeded - the volume reports an allocation failure
//	}
//	defer rc.ReleaseMemory(sliceSize)
package resource
