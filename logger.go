package diskmap

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with diskmap-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger logs JSON to stderr at or above level.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger logs text to stderr at or above level.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.Logger.With("path", path)}
}

// WithHash adds a hash field to the logger.
func (l *Logger) WithHash(hash int) *Logger {
	return &Logger{Logger: l.Logger.With("hash", hash)}
}

// logOutcome logs msg at level on success and "<op> failed" at error level otherwise.
func (l *Logger) logOutcome(ctx context.Context, level slog.Level, msg, op string, err error, attrs ...any) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed", append(attrs, "error", err)...)
		return
	}
	l.Log(ctx, level, msg, attrs...)
}

// LogOpen logs a map open.
func (l *Logger) LogOpen(ctx context.Context, backend Backend, loadFactor int, created bool, err error) {
	attrs := []any{"backend", backend.String(), "load_factor", loadFactor}
	if err == nil {
		attrs = append(attrs, "created", created)
	}
	l.logOutcome(ctx, slog.LevelInfo, "map opened", "open", err, attrs...)
}

// LogInsert logs the first population of a bucket.
func (l *Logger) LogInsert(ctx context.Context, hash int, root int64, err error) {
	l.logOutcome(ctx, slog.LevelDebug, "bucket inserted", "bucket insert", err, "hash", hash, "root", root)
}

// LogUpdate logs a bucket root replacement.
func (l *Logger) LogUpdate(ctx context.Context, hash int, root int64, err error) {
	l.logOutcome(ctx, slog.LevelDebug, "bucket updated", "bucket update", err, "hash", hash, "root", root)
}

// LogCommit logs a commit.
func (l *Logger) LogCommit(ctx context.Context, size int64, err error) {
	l.logOutcome(ctx, slog.LevelDebug, "commit completed", "commit", err, "size", size)
}

// LogClear logs a directory clear.
func (l *Logger) LogClear(ctx context.Context, buckets int, err error) {
	l.logOutcome(ctx, slog.LevelInfo, "map cleared", "clear", err, "buckets", buckets)
}
