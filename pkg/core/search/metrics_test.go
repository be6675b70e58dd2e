package search

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	first.attempt()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.attempts))
}

func TestEngine_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Metrics = metrics
	engine, _ := newTestEngine(t, newInput(1, 1, 1), cfg)

	result, err := engine.Solve(context.Background())
	require.NoError(t, err)

	stats := result.Diagnostics.Statistics
	assert.Equal(t, float64(stats.Attempts), testutil.ToFloat64(metrics.attempts))
	assert.Equal(t, float64(stats.DeadEnds), testutil.ToFloat64(metrics.deadEnds))
	assert.Equal(t, float64(len(result.Diagnostics.Unassigned)), testutil.ToFloat64(metrics.unassigned))
	assert.Equal(t, float64(stats.FailedBacktracks), testutil.ToFloat64(metrics.backtracks.WithLabelValues("unsolvable")))
	assert.Positive(t, testutil.CollectAndCount(metrics.backtracks))
}

func TestEngine_NilMetricsAreIgnored(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.attempt()
		m.backtrack(Resolved)
		m.deadEnd()
		m.depth(3)
		m.setUnassigned(1)
	})
}
