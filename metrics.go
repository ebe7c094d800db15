package rsfs

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordCreate is called after each create operation.
	RecordCreate(err error)

	// RecordOpen is called after each open operation.
	// wait is the time spent blocked on the file's access policy.
	RecordOpen(mode Mode, wait time.Duration, err error)

	// RecordRead is called after each read with the bytes transferred.
	RecordRead(bytes int, duration time.Duration, err error)

	// RecordWrite is called after each write or append with the bytes transferred.
	RecordWrite(bytes int, duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(err error)

	// RecordExhausted is called when a transfer stops short because the block
	// pool or the file's pointer slots ran out.
	RecordExhausted()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCreate(error)                    {}
func (NoopMetricsCollector) RecordOpen(Mode, time.Duration, error) {}
func (NoopMetricsCollector) RecordRead(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordWrite(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDelete(error)                    {}
func (NoopMetricsCollector) RecordExhausted()                      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CreateCount    atomic.Int64
	CreateErrors   atomic.Int64
	OpenCount      atomic.Int64
	OpenErrors     atomic.Int64
	OpenWaitNanos  atomic.Int64
	ReadCount      atomic.Int64
	ReadErrors     atomic.Int64
	ReadBytes      atomic.Int64
	WriteCount     atomic.Int64
	WriteErrors    atomic.Int64
	WriteBytes     atomic.Int64
	DeleteCount    atomic.Int64
	DeleteErrors   atomic.Int64
	ExhaustedCount atomic.Int64
}

// RecordCreate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCreate(err error) {
	b.CreateCount.Add(1)
	if err != nil {
		b.CreateErrors.Add(1)
	}
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(_ Mode, wait time.Duration, err error) {
	b.OpenCount.Add(1)
	b.OpenWaitNanos.Add(wait.Nanoseconds())
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(bytes int, _ time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadBytes.Add(int64(bytes))
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(bytes int, _ time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteBytes.Add(int64(bytes))
	if err != nil {
		b.WriteErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordExhausted implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExhausted() {
	b.ExhaustedCount.Add(1)
}

// Stats is a point-in-time copy of BasicMetricsCollector counters.
type Stats struct {
	Creates, CreateErrors int64
	Opens, OpenErrors     int64
	OpenWait              time.Duration
	Reads, ReadErrors     int64
	BytesRead             int64
	Writes, WriteErrors   int64
	BytesWritten          int64
	Deletes, DeleteErrors int64
	Exhausted             int64
}

// GetStats returns a snapshot of the collected counters.
func (b *BasicMetricsCollector) GetStats() Stats {
	return Stats{
		Creates:      b.CreateCount.Load(),
		CreateErrors: b.CreateErrors.Load(),
		Opens:        b.OpenCount.Load(),
		OpenErrors:   b.OpenErrors.Load(),
		OpenWait:     time.Duration(b.OpenWaitNanos.Load()),
		Reads:        b.ReadCount.Load(),
		ReadErrors:   b.ReadErrors.Load(),
		BytesRead:    b.ReadBytes.Load(),
		Writes:       b.WriteCount.Load(),
		WriteErrors:  b.WriteErrors.Load(),
		BytesWritten: b.WriteBytes.Load(),
		Deletes:      b.DeleteCount.Load(),
		DeleteErrors: b.DeleteErrors.Load(),
		Exhausted:    b.ExhaustedCount.Load(),
	}
}
