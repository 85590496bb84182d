package prometrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

func TestCounterReusesRegisteredVector(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New("minishop", "", reg)

	first := r.Counter("payments_settled_total", "Payments settled.", "status", "trigger")
	first.Add(2, observability.L("status", "success"), observability.L("trigger", "webhook"))
	again := r.Counter("payments_settled_total", "Payments settled.", "status", "trigger")
	again.Add(1, observability.L("status", "success"), observability.L("trigger", "webhook"))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, "minishop_payments_settled_total", families[0].GetName())
	require.Len(t, families[0].GetMetric(), 1)
	require.Equal(t, 3.0, families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestHistogramDefaultsBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New("", "", reg).Histogram("usecase_duration_seconds", "Use case latency.", nil, "use_case")
	h.Observe(0.2, observability.L("use_case", "payment.verify"))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	got := families[0].GetMetric()[0].GetHistogram()
	require.Len(t, got.GetBucket(), len(prometheus.DefBuckets))
	require.Equal(t, uint64(1), got.GetSampleCount())
}
