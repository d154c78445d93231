package store

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting volume I/O metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordRead is called after each positional read.
	RecordRead(bytes int, duration time.Duration, err error)
	// RecordWrite is called after each positional write.
	RecordWrite(bytes int, duration time.Duration, err error)
	// RecordAllocate is called after each allocation.
	RecordAllocate(bytes int, err error)
	// RecordCommit is called after each commit.
	RecordCommit(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRead(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordWrite(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordAllocate(int, error)             {}
func (NoopMetricsCollector) RecordCommit(time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	Reads          atomic.Int64
	ReadBytes      atomic.Int64
	ReadErrors     atomic.Int64
	Writes         atomic.Int64
	WriteBytes     atomic.Int64
	WriteErrors    atomic.Int64
	Allocations    atomic.Int64
	AllocatedBytes atomic.Int64
	AllocateErrors atomic.Int64
	Commits        atomic.Int64
	CommitErrors   atomic.Int64
	CommitNanos    atomic.Int64
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(bytes int, _ time.Duration, err error) {
	b.Reads.Add(1)
	if err != nil {
		b.ReadErrors.Add(1)
		return
	}
	b.ReadBytes.Add(int64(bytes))
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(bytes int, _ time.Duration, err error) {
	b.Writes.Add(1)
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.WriteBytes.Add(int64(bytes))
}

// RecordAllocate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocate(bytes int, err error) {
	if err != nil {
		b.AllocateErrors.Add(1)
		return
	}
	b.Allocations.Add(1)
	b.AllocatedBytes.Add(int64(bytes))
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(duration time.Duration, err error) {
	b.Commits.Add(1)
	b.CommitNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CommitErrors.Add(1)
	}
}
