// Package prometheus exports ledgercol metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	g, _ := ledgercol.OpenGroup(dir, ledgercol.WithMetrics(ledgerprom.New(reg)))
package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/ledgercol"
)

const namespace = "ledgercol"

// Collector implements ledgercol.MetricsCollector.
type Collector struct {
	flushes       *prom.CounterVec
	flushRecords  *prom.CounterVec
	flushBytes    *prom.CounterVec
	flushDuration *prom.HistogramVec
	truncates     *prom.CounterVec
	truncated     *prom.CounterVec
	imports       *prom.CounterVec
	length        *prom.GaugeVec
	pageMaps      *prom.CounterVec
	pageMapBytes  *prom.CounterVec
}

var _ ledgercol.MetricsCollector = (*Collector)(nil)

// New registers the collector's metrics with reg.
func New(reg prom.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		flushes: f.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Flushes by column and status.",
		}, []string{"column", "status"}),
		flushRecords: f.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_records_total",
			Help:      "Records written to disk.",
		}, []string{"column"}),
		flushBytes: f.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_bytes_total",
			Help:      "Bytes written to disk.",
		}, []string{"column"}),
		flushDuration: f.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Flush latency.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"column"}),
		truncates: f.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "truncates_total",
			Help:      "Truncations by column and status.",
		}, []string{"column", "status"}),
		truncated: f.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "truncated_records_total",
			Help:      "Records removed by truncation.",
		}, []string{"column"}),
		imports: f.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Column imports by status.",
		}, []string{"column", "status"}),
		length: f.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "column_length_at_import",
			Help:      "Records present when the column was imported.",
		}, []string{"column"}),
		pageMaps: f.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_maps_total",
			Help:      "Pages mapped into the page window.",
		}, []string{"column"}),
		pageMapBytes: f.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_map_bytes_total",
			Help:      "Bytes mapped into the page window.",
		}, []string{"column"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordFlush implements ledgercol.MetricsCollector.
func (c *Collector) RecordFlush(column string, records, bytes int, duration time.Duration, err error) {
	c.flushes.WithLabelValues(column, status(err)).Inc()
	c.flushDuration.WithLabelValues(column).Observe(duration.Seconds())
	if err == nil {
		c.flushRecords.WithLabelValues(column).Add(float64(records))
		c.flushBytes.WithLabelValues(column).Add(float64(bytes))
	}
}

// RecordTruncate implements ledgercol.MetricsCollector.
func (c *Collector) RecordTruncate(column string, removed int, err error) {
	c.truncates.WithLabelValues(column, status(err)).Inc()
	if err == nil {
		c.truncated.WithLabelValues(column).Add(float64(removed))
	}
}

// RecordImport implements ledgercol.MetricsCollector.
func (c *Collector) RecordImport(column string, length int, err error) {
	c.imports.WithLabelValues(column, status(err)).Inc()
	if err == nil {
		c.length.WithLabelValues(column).Set(float64(length))
	}
}

// RecordPageMap implements ledgercol.MetricsCollector.
func (c *Collector) RecordPageMap(column string, bytes int) {
	c.pageMaps.WithLabelValues(column).Inc()
	c.pageMapBytes.WithLabelValues(column).Add(float64(bytes))
}
