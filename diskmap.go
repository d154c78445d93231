package diskmap

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/diskmap/hashdir"
	"github.com/hupe1980/diskmap/store"
)

// Map is a named, hash-indexed map: a hash directory on its own volume.
//
// Map exposes bucket-root access. Keyed layers logical keys on top through
// an opaque sub-map implementation.
type Map struct {
	s       store.Store
	dir     *hashdir.Directory
	buckets hashdir.Buckets
	cached  *hashdir.Cached
	opts    options
	log     *Logger

	sbMu        sync.Mutex
	sb          superblock
	serializers int
	closed      atomic.Bool
}

// Open opens or creates the map at path with the given load factor
// (1–10, fixing the directory at 10^loadFactor buckets). Reopening an
// existing map with a different load factor fails with *ErrLoadFactor.
func Open(path string, loadFactor int, optFns ...Option) (*Map, error) {
	opts := applyOptions(optFns)
	log := opts.logger.WithPath(path)
	ctx := context.Background()

	m, created, err := open(path, loadFactor, opts, log)
	log.LogOpen(ctx, opts.backend, loadFactor, created, err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func open(path string, loadFactor int, opts options, log *Logger) (*Map, bool, error) {
	if _, err := hashdir.Slots(loadFactor); err != nil {
		return nil, false, err
	}

	s, err := openStore(path, opts, log)
	if err != nil {
		return nil, false, err
	}

	m := &Map{s: s, opts: opts, log: log}
	created, err := m.init(loadFactor)
	if err != nil {
		_ = s.Close()
		return nil, false, err
	}
	return m, created, nil
}

func openStore(path string, opts options, log *Logger) (store.Store, error) {
	storeOpts := []store.Option{
		store.WithLogger(log.Logger),
		store.WithMetrics(opts.storeMetrics),
		store.WithResourceController(opts.rc),
	}
	storeOpts = append(storeOpts, opts.storeOptions...)

	switch opts.backend {
	case BackendFile:
		return store.OpenFile(path, storeOpts...)
	case BackendMapped:
		return store.OpenMapped(path, storeOpts...)
	case BackendMemory:
		return store.OpenMemory(path, storeOpts...)
	case BackendEncryptedFile, BackendEncryptedMapped:
		if len(opts.key) == 0 {
			return nil, ErrMissingKey
		}
		if opts.backend == BackendEncryptedFile {
			return store.OpenEncryptedFile(path, opts.key, storeOpts...)
		}
		return store.OpenEncryptedMapped(path, opts.key, storeOpts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidBackend, opts.backend)
	}
}

// init reads or writes the superblock and opens the directory.
func (m *Map) init(loadFactor int) (bool, error) {
	created := m.s.Size() == store.MarkerSize
	if created {
		pos, err := m.s.Allocate(superblockSize)
		if err != nil {
			return false, err
		}
		if pos != superblockPos {
			return false, fmt.Errorf("%w: allocated at %d", ErrBadSuperblock, pos)
		}
		m.sb = superblock{loadFactor: loadFactor}
	} else {
		sb, err := readSuperblock(m.s)
		if err != nil {
			return false, err
		}
		if sb.loadFactor != loadFactor {
			return false, newLoadFactorError(sb.loadFactor, loadFactor)
		}
		if err := loadSerializers(m.s, sb); err != nil {
			return false, err
		}
		m.sb = sb
		m.serializers = len(m.s.Serializers().Entries())
	}

	h := &hashdir.Header{FirstNode: m.sb.firstNode, LoadFactor: loadFactor}
	dir, err := hashdir.New(m.s, h, hashdir.WithLogger(m.log.Logger))
	if err != nil {
		return false, err
	}
	if h.FirstNode != m.sb.firstNode || created {
		m.sb.firstNode = h.FirstNode
		if err := writeSuperblock(m.s, m.sb); err != nil {
			return false, err
		}
	}

	m.dir = dir
	m.buckets = dir
	if !m.opts.uncached {
		m.cached = hashdir.NewCached(dir,
			hashdir.WithCacheCapacity(m.opts.cacheCapacity),
			hashdir.WithResourceController(m.opts.rc),
		)
		m.buckets = m.cached
	}
	return created, nil
}

// Get returns the bucket root for hash, or 0 if the bucket is empty.
func (m *Map) Get(hash int) (int64, error) {
	start := time.Now()
	root, err := m.buckets.Reference(hash)
	m.opts.metricsCollector.RecordLookup(time.Since(start), root != 0, err)
	return root, err
}

// ReadObject decodes the object at pos into v. A position at or beyond
// the end of the volume yields ErrNotFound.
func (m *Map) ReadObject(pos int64, size int, v any) error {
	return translateError(m.s.ReadObject(pos, size, v))
}

// Put records the first root of hash.
func (m *Map) Put(hash int, root int64) (int64, error) {
	start := time.Now()
	_, err := m.buckets.Insert(hash, root)
	m.opts.metricsCollector.RecordInsert(time.Since(start), err)
	m.log.LogInsert(context.Background(), hash, root, err)
	if err != nil {
		return 0, err
	}
	return root, nil
}

// Update replaces the root of an already populated hash.
func (m *Map) Update(hash int, root int64) (int64, error) {
	start := time.Now()
	_, err := m.buckets.Update(hash, root)
	m.opts.metricsCollector.RecordUpdate(time.Since(start), err)
	m.log.LogUpdate(context.Background(), hash, root, err)
	if err != nil {
		return 0, err
	}
	return root, nil
}

// Buckets returns a sequence over populated buckets in first-populated order.
func (m *Map) Buckets() iter.Seq2[hashdir.Bucket, error] {
	return hashdir.All(m.buckets)
}

// Count returns the number of buckets ever populated.
func (m *Map) Count() int { return m.buckets.Count() }

// Clear empties every bucket.
func (m *Map) Clear() error {
	n := m.buckets.Count()
	err := m.buckets.Clear()
	m.opts.metricsCollector.RecordClear(err)
	m.log.LogClear(context.Background(), n, err)
	return err
}

// Commit persists the serializer table if it grew, then flushes the volume.
func (m *Map) Commit() error {
	err := m.persistSerializers()
	if err == nil {
		err = m.s.Commit()
	}
	m.log.LogCommit(context.Background(), m.s.Size(), err)
	return err
}

func (m *Map) persistSerializers() error {
	m.sbMu.Lock()
	defer m.sbMu.Unlock()

	n := len(m.s.Serializers().Entries())
	if n == m.serializers {
		return nil
	}
	pos, size, err := writeSerializers(m.s)
	if err != nil {
		return err
	}
	sb := m.sb
	sb.serializersPos, sb.serializersSize = pos, size
	if err := writeSuperblock(m.s, sb); err != nil {
		return err
	}
	m.sb = sb
	m.serializers = n
	return nil
}

// Store returns the underlying volume.
func (m *Map) Store() store.Store { return m.s }

// Directory returns the bucket directory, cached unless WithoutCache was set.
func (m *Map) Directory() hashdir.Buckets { return m.buckets }

// Header returns the directory header.
func (m *Map) Header() hashdir.Header { return m.dir.Header() }

// CacheStats returns bucket cache statistics. ok is false when the map
// was opened WithoutCache.
func (m *Map) CacheStats() (stats hashdir.CacheStats, ok bool) {
	if m.cached == nil {
		return hashdir.CacheStats{}, false
	}
	return m.cached.Stats(), true
}

// Keyed layers logical keys of type K over m. Sub-maps are created by
// factory; keys are placed into buckets by hasher.
func Keyed[K comparable, V any](m *Map, hasher hashdir.Hasher[K], factory hashdir.SubMapFactory[K, V]) *hashdir.Map[K, V] {
	return hashdir.NewMap(m.s, m.buckets, hasher, factory)
}
