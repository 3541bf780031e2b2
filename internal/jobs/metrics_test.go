package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("cost_recompute").End(nil))
	failure := errors.New("boom")
	require.Same(t, failure, m.Track("cost_recompute").End(failure))

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("cost_recompute", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("cost_recompute", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("cost_recompute")))
}

func TestAddFlaggedLines(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddFlaggedLines("fallback", 2)
	m.AddFlaggedLines("fallback", 0)
	require.Equal(t, 2.0, testutil.ToFloat64(m.flaggedLines.WithLabelValues("fallback")))

	var nilMetrics *Metrics
	nilMetrics.AddFlaggedLines("fallback", 1)
	require.NoError(t, nilMetrics.Track("noop").End(nil))
}
