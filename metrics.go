package ledgercol

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordFlush is called after each flush that had buffered records.
	RecordFlush(column string, records, bytes int, duration time.Duration, err error)

	// RecordTruncate is called after each truncation that removed records.
	RecordTruncate(column string, removed int, err error)

	// RecordImport is called after each import attempt.
	RecordImport(column string, length int, err error)

	// RecordPageMap is called whenever the page cache maps a new page.
	RecordPageMap(column string, bytes int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFlush(string, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordTruncate(string, int, error)                  {}
func (NoopMetricsCollector) RecordImport(string, int, error)                    {}
func (NoopMetricsCollector) RecordPageMap(string, int)                          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	FlushCount      atomic.Int64
	FlushErrors     atomic.Int64
	FlushRecords    atomic.Int64
	FlushBytes      atomic.Int64
	FlushTotalNanos atomic.Int64
	TruncateCount   atomic.Int64
	TruncateErrors  atomic.Int64
	TruncatedItems  atomic.Int64
	ImportCount     atomic.Int64
	ImportErrors    atomic.Int64
	PageMaps        atomic.Int64
	PageMapBytes    atomic.Int64
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(_ string, records, bytes int, duration time.Duration, err error) {
	b.FlushCount.Add(1)
	b.FlushTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FlushErrors.Add(1)
		return
	}
	b.FlushRecords.Add(int64(records))
	b.FlushBytes.Add(int64(bytes))
}

// RecordTruncate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTruncate(_ string, removed int, err error) {
	b.TruncateCount.Add(1)
	if err != nil {
		b.TruncateErrors.Add(1)
		return
	}
	b.TruncatedItems.Add(int64(removed))
}

// RecordImport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordImport(_ string, _ int, err error) {
	b.ImportCount.Add(1)
	if err != nil {
		b.ImportErrors.Add(1)
	}
}

// RecordPageMap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPageMap(_ string, bytes int) {
	b.PageMaps.Add(1)
	b.PageMapBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FlushCount:     b.FlushCount.Load(),
		FlushErrors:    b.FlushErrors.Load(),
		FlushRecords:   b.FlushRecords.Load(),
		FlushBytes:     b.FlushBytes.Load(),
		FlushAvgNanos:  b.getAvgFlushNanos(),
		TruncateCount:  b.TruncateCount.Load(),
		TruncateErrors: b.TruncateErrors.Load(),
		TruncatedItems: b.TruncatedItems.Load(),
		ImportCount:    b.ImportCount.Load(),
		ImportErrors:   b.ImportErrors.Load(),
		PageMaps:       b.PageMaps.Load(),
		PageMapBytes:   b.PageMapBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgFlushNanos() int64 {
	count := b.FlushCount.Load()
	if count == 0 {
		return 0
	}
	return b.FlushTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FlushCount     int64
	FlushErrors    int64
	FlushRecords   int64
	FlushBytes     int64
	FlushAvgNanos  int64
	TruncateCount  int64
	TruncateErrors int64
	TruncatedItems int64
	ImportCount    int64
	ImportErrors   int64
	PageMaps       int64
	PageMapBytes   int64
}
