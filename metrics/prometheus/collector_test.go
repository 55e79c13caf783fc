package prometheus

import (
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ledgercol"
	"github.com/hupe1980/ledgercol/codec"
)

func value(t *testing.T, reg *prom.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m, labels) {
				switch {
				case m.Counter != nil:
					return m.GetCounter().GetValue()
				case m.Gauge != nil:
					return m.GetGauge().GetValue()
				case m.Histogram != nil:
					return float64(m.GetHistogram().GetSampleCount())
				}
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			found++
		}
	}
	return found == len(labels)
}

func TestCollector(t *testing.T) {
	reg := prom.NewRegistry()
	g, err := ledgercol.OpenGroup(t.TempDir(),
		ledgercol.WithMetrics(New(reg)),
		ledgercol.WithLogger(ledgercol.NoopLogger()),
	)
	require.NoError(t, err)
	defer g.Close()

	c, err := ledgercol.Import(g, "price", 1, codec.Float64)
	require.NoError(t, err)
	for i := range 10 {
		c.Push(float64(i))
	}
	require.NoError(t, c.Flush(t.Context()))
	_, _, err = c.TruncateIfNeeded(4)
	require.NoError(t, err)

	col := map[string]string{"column": "price"}
	assert.InDelta(t, 1, value(t, reg, "ledgercol_flushes_total", map[string]string{"column": "price", "status": "ok"}), 0)
	assert.InDelta(t, 10, value(t, reg, "ledgercol_flushed_records_total", col), 0)
	assert.InDelta(t, 80, value(t, reg, "ledgercol_flushed_bytes_total", col), 0)
	assert.InDelta(t, 1, value(t, reg, "ledgercol_flush_duration_seconds", col), 0)
	assert.InDelta(t, 6, value(t, reg, "ledgercol_truncated_records_total", col), 0)
	assert.InDelta(t, 1, value(t, reg, "ledgercol_imports_total", map[string]string{"column": "price", "status": "ok"}), 0)
}

func TestCollector_Errors(t *testing.T) {
	reg := prom.NewRegistry()
	c := New(reg)
	c.RecordFlush("x", 5, 40, 0, assert.AnError)
	c.RecordImport("x", 0, assert.AnError)
	c.RecordPageMap("x", 4096)
	c.RecordPageMap("x", 4096)

	assert.InDelta(t, 1, value(t, reg, "ledgercol_flushes_total", map[string]string{"column": "x", "status": "error"}), 0)
	assert.InDelta(t, 1, value(t, reg, "ledgercol_imports_total", map[string]string{"column": "x", "status": "error"}), 0)
	assert.InDelta(t, 2, value(t, reg, "ledgercol_page_maps_total", map[string]string{"column": "x"}), 0)
	assert.InDelta(t, 8192, value(t, reg, "ledgercol_page_map_bytes_total", map[string]string{"column": "x"}), 0)
}
