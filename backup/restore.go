package backup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/diskmap/blobstore"
	"github.com/hupe1980/diskmap/internal/hash"
	"github.com/hupe1980/diskmap/resource"
	"github.com/hupe1980/diskmap/store"
	"github.com/klauspost/compress/zstd"
)

// Restore rebuilds dst from the latest export of name. dst is reset first.
// On ErrChecksumMismatch dst holds unverified bytes and should be reset
// by the caller.
func Restore(ctx context.Context, bs blobstore.BlobStore, name string, dst store.Store, optFns ...Option) (*Manifest, error) {
	m, err := Latest(ctx, bs, name)
	if err != nil {
		return nil, err
	}
	return m, restore(ctx, bs, m, dst, applyOptions(optFns))
}

// RestoreVersion rebuilds dst from a specific export of name.
func RestoreVersion(ctx context.Context, bs blobstore.BlobStore, name string, version uint64, dst store.Store, optFns ...Option) (*Manifest, error) {
	m, err := readManifest(ctx, bs, manifestName(name, version))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s version %d", ErrNoBackup, name, version)
		}
		return nil, err
	}
	return m, restore(ctx, bs, m, dst, applyOptions(optFns))
}

func restore(ctx context.Context, bs blobstore.BlobStore, m *Manifest, dst store.Store, opts options) error {
	if m.Size < store.MarkerSize {
		return fmt.Errorf("%w: manifest size %d", store.ErrCorrupt, m.Size)
	}
	if err := dst.Serializers().Load(m.Serializers); err != nil {
		return err
	}
	if err := dst.Reset(); err != nil {
		return err
	}
	if m.Size > store.MarkerSize {
		if _, err := dst.Allocate(int(m.Size - store.MarkerSize)); err != nil {
			return err
		}
	}

	b, err := bs.Open(ctx, m.Data)
	if err != nil {
		return err
	}
	defer b.Close()

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return err
	}
	defer rc.Close()

	dec, err := zstd.NewReader(resource.NewRateLimitedReader(ctx, rc, opts.rc))
	if err != nil {
		return err
	}
	defer dec.Close()

	sum := hash.NewChecksum()
	buf := make([]byte, opts.chunkSize)
	for pos := int64(0); pos < m.Size; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := int(min(int64(len(buf)), m.Size-pos))
		if _, err := io.ReadFull(dec, buf[:n]); err != nil {
			return fmt.Errorf("%w: data ends at %d of %d: %v", ErrChecksumMismatch, pos, m.Size, err)
		}
		chunk := buf[:n]
		_, _ = sum.Write(chunk)

		// The marker is rewritten by Allocate.
		off := pos
		if off < store.MarkerSize {
			skip := min(int64(n), store.MarkerSize-off)
			chunk = chunk[skip:]
			off += skip
		}
		if len(chunk) > 0 && !zero(chunk) {
			if err := dst.WriteAt(chunk, off); err != nil {
				return err
			}
		}
		pos += int64(n)
	}

	if _, err := dec.Read(buf[:1]); err != io.EOF {
		return fmt.Errorf("%w: trailing data", ErrChecksumMismatch)
	}
	if got := sum.Sum32(); got != m.Checksum {
		return fmt.Errorf("%w: got %08x, want %08x", ErrChecksumMismatch, got, m.Checksum)
	}
	if err := dst.Commit(); err != nil {
		return err
	}

	opts.logger.Info("volume restored", "name", m.Name, "version", m.Version, "size", m.Size)
	return nil
}

// zero reports whether p holds only zero bytes. Fresh volume space already
// reads as zero, so such chunks are not written.
func zero(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}
