package store

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// backend is the positional byte layer underneath a volume. Reads of bytes
// that are allocated but not yet physically present return zeros.
type backend interface {
	readAt(p []byte, pos int64) error
	writeAt(p []byte, pos int64) error
	// grow makes room for the volume to end at end.
	grow(end int64) error
	sync() error
	// truncate drops everything past the marker.
	truncate() error
	// close releases the backend; size is the logical size of the volume.
	close(size int64) error
	// remove deletes the backing resource after close.
	remove() error
}

// volume carries the allocation and size-marker bookkeeping shared by all
// backend families.
type volume struct {
	path string
	opts options
	log  *slog.Logger
	io   backend

	size     atomic.Int64
	markerMu sync.Mutex
	dirty    atomic.Bool
	closed   atomic.Bool
	closeMu  sync.Mutex
}

func newVolume(path string, opts options, io backend) *volume {
	v := &volume{
		path: path,
		opts: opts,
		log:  opts.logger.With("path", path),
		io:   io,
	}
	v.size.Store(MarkerSize)
	return v
}

// load reads the size marker of an existing backing resource. A resource
// shorter than the marker is initialized as empty.
func (v *volume) load(physical int64) error {
	if physical < MarkerSize {
		if err := v.io.grow(MarkerSize); err != nil {
			return err
		}
		return v.persistMarker()
	}

	buf := make([]byte, MarkerSize)
	if err := v.io.readAt(buf, 0); err != nil {
		return err
	}
	size := int64(binary.LittleEndian.Uint64(buf))
	if size < MarkerSize {
		return fmt.Errorf("%w: size marker %d", ErrCorrupt, size)
	}
	if err := v.io.grow(size); err != nil {
		return err
	}
	v.size.Store(size)
	return nil
}

// Path implements Store.
func (v *volume) Path() string { return v.path }

// Size implements Store.
func (v *volume) Size() int64 { return v.size.Load() }

// Dirty implements Store.
func (v *volume) Dirty() bool { return v.dirty.Load() }

// Serializers implements Store.
func (v *volume) Serializers() *Serializers { return v.opts.serializers }

// Allocate implements Store.
func (v *volume) Allocate(size int) (int64, error) {
	if v.closed.Load() {
		return 0, ErrClosed
	}
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	var pos int64
	for {
		pos = v.size.Load()
		end := pos + int64(size)
		if v.opts.maxSize > 0 && end > v.opts.maxSize {
			err := fmt.Errorf("%w: %d bytes at %d (max %d)", ErrCapacityExceeded, size, pos, v.opts.maxSize)
			v.opts.metrics.RecordAllocate(size, err)
			return 0, err
		}
		if v.size.CompareAndSwap(pos, end) {
			break
		}
	}

	end := pos + int64(size)
	if err := v.io.grow(end); err != nil {
		v.opts.metrics.RecordAllocate(size, err)
		v.log.Error("allocate failed", "pos", pos, "size", size, "error", err)
		return 0, err
	}
	if err := v.persistMarker(); err != nil {
		v.opts.metrics.RecordAllocate(size, err)
		return 0, err
	}

	v.dirty.Store(true)
	v.opts.metrics.RecordAllocate(size, nil)
	return pos, nil
}

// persistMarker writes the current size to offset 0. Holding markerMu while
// loading the size keeps the persisted marker from moving backwards.
func (v *volume) persistMarker() error {
	v.markerMu.Lock()
	defer v.markerMu.Unlock()

	var buf [MarkerSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v.size.Load()))
	return v.io.writeAt(buf[:], 0)
}

// WriteAt implements Store.
func (v *volume) WriteAt(p []byte, pos int64) error {
	if v.closed.Load() {
		return ErrClosed
	}
	if pos < MarkerSize || pos+int64(len(p)) > v.size.Load() {
		return fmt.Errorf("%w: write of %d bytes at %d (size %d)", ErrInvalidPosition, len(p), pos, v.size.Load())
	}

	start := time.Now()
	err := v.io.writeAt(p, pos)
	v.opts.metrics.RecordWrite(len(p), time.Since(start), err)
	if err != nil {
		return err
	}
	v.dirty.Store(true)
	return nil
}

// ReadAt implements Store.
func (v *volume) ReadAt(pos int64, size int) ([]byte, error) {
	if v.closed.Load() {
		return nil, ErrClosed
	}
	if pos < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if pos >= v.size.Load() {
		return nil, nil
	}

	p := make([]byte, size)
	start := time.Now()
	err := v.io.readAt(p, pos)
	v.opts.metrics.RecordRead(size, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// WriteObject implements Store.
func (v *volume) WriteObject(obj any) (int64, int, error) {
	frame, err := v.opts.serializers.Encode(obj, v.opts.compression)
	if err != nil {
		return 0, 0, err
	}
	pos, err := v.Allocate(len(frame))
	if err != nil {
		return 0, 0, err
	}
	if err := v.WriteAt(frame, pos); err != nil {
		return 0, 0, err
	}
	return pos, len(frame), nil
}

// ReadObject implements Store.
func (v *volume) ReadObject(pos int64, size int, obj any) error {
	frame, err := v.ReadAt(pos, size)
	if err != nil {
		return err
	}
	if frame == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, pos)
	}
	return v.opts.serializers.Decode(frame, obj)
}

// Commit implements Store.
func (v *volume) Commit() error {
	if v.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	err := v.io.sync()
	v.opts.metrics.RecordCommit(time.Since(start), err)
	if err != nil {
		v.log.Error("commit failed", "error", err)
		return err
	}
	v.dirty.Store(false)
	return nil
}

// Reset implements Store.
func (v *volume) Reset() error {
	if v.closed.Load() {
		return ErrClosed
	}
	v.markerMu.Lock()
	defer v.markerMu.Unlock()

	if err := v.io.truncate(); err != nil {
		return err
	}
	v.size.Store(MarkerSize)

	var buf [MarkerSize]byte
	binary.LittleEndian.PutUint64(buf[:], MarkerSize)
	if err := v.io.writeAt(buf[:], 0); err != nil {
		return err
	}
	v.dirty.Store(true)
	return nil
}

// Close implements Store. It is idempotent.
func (v *volume) Close() error {
	v.closeMu.Lock()
	defer v.closeMu.Unlock()
	if v.closed.Load() {
		return nil
	}

	var syncErr error
	if !v.opts.ephemeral && v.dirty.Load() {
		syncErr = v.io.sync()
	}
	v.closed.Store(true)

	if err := v.io.close(v.size.Load()); err != nil {
		return err
	}
	if syncErr != nil {
		return syncErr
	}
	v.dirty.Store(false)

	if v.opts.deleteOnClose {
		go func() {
			if err := v.io.remove(); err != nil {
				v.log.Warn("delete on close failed", "error", err)
			}
		}()
	}
	v.log.Debug("volume closed", "size", v.size.Load())
	return nil
}

// Delete implements Store.
func (v *volume) Delete() error {
	if err := v.Close(); err != nil {
		return err
	}
	if v.opts.deleteOnClose {
		return nil
	}
	return v.io.remove()
}
