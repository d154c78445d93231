package hashdir

import (
	"log/slog"

	"github.com/hupe1980/diskmap/resource"
)

// DefaultCacheCapacity is the default number of entries per cache.
const DefaultCacheCapacity = 64 * 1024

type options struct {
	logger        *slog.Logger
	cacheCapacity int
	rc            *resource.Controller
}

// Option configures a directory or its cache.
type Option func(*options)

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithCacheCapacity bounds the number of entries in each of the two bucket
// caches.
func WithCacheCapacity(n int) Option {
	return func(o *options) {
		o.cacheCapacity = n
	}
}

// WithResourceController charges cache entries to rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		cacheCapacity: DefaultCacheCapacity,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.cacheCapacity <= 0 {
		o.cacheCapacity = DefaultCacheCapacity
	}
	return o
}
