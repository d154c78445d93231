package diskmap

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/diskmap/store"
)

// MetricsCollector defines an interface for collecting map-level metrics.
// Volume I/O metrics are collected separately through StoreMetrics.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    lookups prometheus.Counter
//	}
//
//	func (p *PrometheusCollector) RecordLookup(duration time.Duration, found bool, err error) {
//	    p.lookups.Inc()
//	}
type MetricsCollector interface {
	// RecordLookup is called after each bucket lookup.
	RecordLookup(duration time.Duration, found bool, err error)
	// RecordInsert is called after a bucket is first populated.
	RecordInsert(duration time.Duration, err error)
	// RecordUpdate is called after a bucket root is replaced.
	RecordUpdate(duration time.Duration, err error)
	// RecordClear is called after the map is cleared.
	RecordClear(err error)
}

// StoreMetrics is the volume-level metrics interface.
type StoreMetrics = store.MetricsCollector

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLookup(time.Duration, bool, error) {}
func (NoopMetricsCollector) RecordInsert(time.Duration, error)       {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)       {}
func (NoopMetricsCollector) RecordClear(error)                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	LookupCount  atomic.Int64
	LookupHits   atomic.Int64
	LookupErrors atomic.Int64
	LookupNanos  atomic.Int64
	InsertCount  atomic.Int64
	InsertErrors atomic.Int64
	UpdateCount  atomic.Int64
	UpdateErrors atomic.Int64
	ClearCount   atomic.Int64
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(duration time.Duration, found bool, err error) {
	b.LookupCount.Add(1)
	b.LookupNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupErrors.Add(1)
		return
	}
	if found {
		b.LookupHits.Add(1)
	}
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(_ time.Duration, err error) {
	if err != nil {
		b.InsertErrors.Add(1)
		return
	}
	b.InsertCount.Add(1)
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(_ time.Duration, err error) {
	if err != nil {
		b.UpdateErrors.Add(1)
		return
	}
	b.UpdateCount.Add(1)
}

// RecordClear implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClear(err error) {
	if err == nil {
		b.ClearCount.Add(1)
	}
}

// AvgLookupNanos returns the mean lookup latency.
func (b *BasicMetricsCollector) AvgLookupNanos() int64 {
	n := b.LookupCount.Load()
	if n == 0 {
		return 0
	}
	return b.LookupNanos.Load() / n
}
