package store

import (
	"log/slog"

	"github.com/hupe1980/diskmap/internal/fs"
	"github.com/hupe1980/diskmap/resource"
)

type options struct {
	ephemeral     bool
	deleteOnClose bool
	sliceSize     int
	maxSize       int64
	serializers   *Serializers
	compression   Compression
	logger        *slog.Logger
	metrics       MetricsCollector
	rc            *resource.Controller
	fs            fs.FileSystem
}

// Option configures a volume.
type Option func(*options)

// WithEphemeral marks the volume as scratch space: it uses small slices and
// skips flushing on close.
func WithEphemeral() Option {
	return func(o *options) {
		o.ephemeral = true
	}
}

// WithDeleteOnClose removes the backing resource when the volume closes.
func WithDeleteOnClose() Option {
	return func(o *options) {
		o.deleteOnClose = true
	}
}

// WithSliceSize overrides the slice capacity of mapped and in-memory
// volumes. The size is rounded up to a multiple of 64 KiB.
func WithSliceSize(size int) Option {
	return func(o *options) {
		o.sliceSize = size
	}
}

// WithMaxSize caps the allocated size; allocations beyond it fail with
// ErrCapacityExceeded. Zero means unlimited.
func WithMaxSize(size int64) Option {
	return func(o *options) {
		o.maxSize = size
	}
}

// WithSerializers sets the serializer table used for object I/O.
func WithSerializers(s *Serializers) Option {
	return func(o *options) {
		o.serializers = s
	}
}

// WithCompression compresses object payloads before they are written.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics configures a metrics collector. Pass nil to disable.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithResourceController charges slice memory of in-memory volumes to rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithFileSystem replaces the filesystem used by file-based backends.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		compression: CompressionNone,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.serializers == nil {
		o.serializers = NewSerializers()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
	if o.fs == nil {
		o.fs = fs.Default
	}
	if o.sliceSize <= 0 {
		if o.ephemeral {
			o.sliceSize = EphemeralSliceSize
		} else {
			o.sliceSize = DefaultSliceSize
		}
	}
	o.sliceSize = alignSliceSize(o.sliceSize)
	return o
}
