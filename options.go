package diskmap

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/diskmap/resource"
	"github.com/hupe1980/diskmap/store"
)

// Backend selects the volume implementation a map is opened on.
type Backend int

const (
	// BackendFile uses positional I/O on a plain file.
	BackendFile Backend = iota
	// BackendMapped maps the file into memory slice by slice.
	BackendMapped
	// BackendMemory keeps the volume in process memory. Nothing persists.
	BackendMemory
	// BackendEncryptedFile encrypts objects on a plain-file volume.
	BackendEncryptedFile
	// BackendEncryptedMapped encrypts objects on a mapped volume.
	BackendEncryptedMapped
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendFile:
		return "file"
	case BackendMapped:
		return "mapped"
	case BackendMemory:
		return "memory"
	case BackendEncryptedFile:
		return "encrypted-file"
	case BackendEncryptedMapped:
		return "encrypted-mapped"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

type options struct {
	backend          Backend
	key              []byte
	logger           *Logger
	metricsCollector MetricsCollector
	storeMetrics     store.MetricsCollector
	cacheCapacity    int
	uncached         bool
	rc               *resource.Controller
	storeOptions     []store.Option
}

// Option configures Open.
type Option func(*options)

// WithBackend selects the volume backend. The default is BackendFile.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithEncryptionKey sets the AES key (16, 24 or 32 bytes) of the encrypted
// backends.
func WithEncryptionKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := diskmap.NewJSONLogger(slog.LevelInfo)
//	m, _ := diskmap.Open("./data/users.map", 4, diskmap.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a collector for map-level operations.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithStoreMetrics configures a collector for volume I/O.
func WithStoreMetrics(mc StoreMetrics) Option {
	return func(o *options) {
		o.storeMetrics = mc
	}
}

// WithCacheCapacity bounds the bucket-root caches.
func WithCacheCapacity(n int) Option {
	return func(o *options) {
		o.cacheCapacity = n
	}
}

// WithoutCache reads every bucket root from the volume.
func WithoutCache() Option {
	return func(o *options) {
		o.uncached = true
	}
}

// WithResourceController charges cache entries and in-memory slices to rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithStoreOptions passes extra options to the volume.
func WithStoreOptions(optFns ...store.Option) Option {
	return func(o *options) {
		o.storeOptions = append(o.storeOptions, optFns...)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		backend: BackendFile,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}
