package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Renames.Inc()
	m.SkippedStrings.WithLabelValues("multi_xref").Add(2)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Renames))
	require.Equal(t, 2.0, testutil.ToFloat64(m.SkippedStrings.WithLabelValues("multi_xref")))

	// registering twice on the same registry panics
	require.Panics(t, func() { NewMetrics(reg) })
}

func TestNewMetricsNilRegistry(t *testing.T) {
	m := NewMetrics(nil)
	m.Matches.Inc()
	require.Equal(t, 1.0, testutil.ToFloat64(m.Matches))
}
