package backup

import (
	"log/slog"

	"github.com/hupe1980/diskmap/resource"
	"github.com/klauspost/compress/zstd"
)

// DefaultChunkSize is the number of volume bytes read or written per step.
const DefaultChunkSize = 1 << 20

// Option configures Export and Restore.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	rc        *resource.Controller
	level     zstd.EncoderLevel
	chunkSize int
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithResourceController bounds IO throughput and, for ExportAll, the
// number of concurrent exports.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) { o.rc = rc }
}

// WithLevel sets the zstd encoder level.
func WithLevel(level zstd.EncoderLevel) Option {
	return func(o *options) { o.level = level }
}

// WithChunkSize sets the transfer chunk size.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

func applyOptions(optFns []Option) options {
	opts := options{
		logger:    slog.New(slog.DiscardHandler),
		level:     zstd.SpeedDefault,
		chunkSize: DefaultChunkSize,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}
