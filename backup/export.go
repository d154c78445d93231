package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/hupe1980/diskmap/blobstore"
	"github.com/hupe1980/diskmap/internal/hash"
	"github.com/hupe1980/diskmap/resource"
	"github.com/hupe1980/diskmap/store"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
)

// Export commits s and streams its bytes to bs as the next version of name.
// Writers must be quiesced for the duration; the size is captured once at
// the start.
func Export(ctx context.Context, s store.Store, bs blobstore.BlobStore, name string, optFns ...Option) (*Manifest, error) {
	return export(ctx, s, bs, name, applyOptions(optFns))
}

// ExportAll exports several volumes concurrently. Concurrency is bounded
// by the resource controller's background slots.
func ExportAll(ctx context.Context, bs blobstore.BlobStore, volumes map[string]store.Store, optFns ...Option) (map[string]*Manifest, error) {
	opts := applyOptions(optFns)

	names := make([]string, 0, len(volumes))
	for name := range volumes {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu     sync.Mutex
		result = make(map[string]*Manifest, len(volumes))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		s := volumes[name]
		g.Go(func() error {
			if err := opts.rc.AcquireBackground(gctx); err != nil {
				return err
			}
			defer opts.rc.ReleaseBackground()

			m, err := export(gctx, s, bs, name, opts)
			if err != nil {
				return fmt.Errorf("backup: export %s: %w", name, err)
			}
			mu.Lock()
			result[name] = m
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func export(ctx context.Context, s store.Store, bs blobstore.BlobStore, name string, opts options) (*Manifest, error) {
	if err := s.Commit(); err != nil {
		return nil, err
	}

	version := uint64(1)
	prev, err := Latest(ctx, bs, name)
	switch {
	case err == nil:
		version = prev.Version + 1
	case errors.Is(err, ErrNoBackup):
	default:
		return nil, err
	}

	m := &Manifest{
		FormatVersion: FormatVersion,
		Name:          name,
		Version:       version,
		Data:          dataName(name, version),
		Size:          s.Size(),
		Serializers:   s.Serializers().Entries(),
		CreatedAt:     time.Now().UTC(),
	}

	w, err := bs.Create(ctx, m.Data)
	if err != nil {
		return nil, err
	}
	if err := writeData(ctx, s, w, m, opts); err != nil {
		discard(ctx, bs, w, m.Data)
		return nil, err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := bs.Put(ctx, manifestName(name, version), data); err != nil {
		return nil, err
	}
	// Visible from here on.
	if err := bs.Put(ctx, currentName(name), []byte(manifestName(name, version))); err != nil {
		return nil, err
	}

	opts.logger.Info("volume exported",
		"name", name,
		"version", version,
		"size", m.Size,
		"compressed", m.Compressed,
	)
	return m, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeData(ctx context.Context, s store.Store, w blobstore.WritableBlob, m *Manifest, opts options) error {
	counter := &countingWriter{w: w}
	enc, err := zstd.NewWriter(resource.NewRateLimitedWriter(ctx, counter, opts.rc),
		zstd.WithEncoderLevel(opts.level))
	if err != nil {
		return err
	}

	sum := hash.NewChecksum()
	for pos := int64(0); pos < m.Size; pos += int64(opts.chunkSize) {
		if err := ctx.Err(); err != nil {
			enc.Close()
			return err
		}
		n := int(min(int64(opts.chunkSize), m.Size-pos))
		buf, err := s.ReadAt(pos, n)
		if err != nil {
			enc.Close()
			return err
		}
		if len(buf) != n {
			enc.Close()
			return fmt.Errorf("%w: short read at %d", store.ErrCorrupt, pos)
		}
		_, _ = sum.Write(buf)
		if _, err := enc.Write(buf); err != nil {
			enc.Close()
			return err
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	m.Checksum = sum.Sum32()
	m.Compressed = counter.n
	return nil
}

// discard drops a partially written data blob.
func discard(ctx context.Context, bs blobstore.BlobStore, w blobstore.WritableBlob, name string) {
	if a, ok := w.(interface{ Abort() error }); ok {
		_ = a.Abort()
		return
	}
	_ = w.Close()
	_ = bs.Delete(ctx, name)
}
