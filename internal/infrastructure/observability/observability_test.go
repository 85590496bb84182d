package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

func TestNewPrometheusRegistersCatalog(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel := NewPrometheus(nil, nil, prometrics.New("", "", reg))
	require.NotNil(t, tel.Tracer())
	require.NotNil(t, tel.Logger())

	tel.Metrics().Counter(observability.MPaymentsSettled).Add(1,
		observability.L("status", "success"), observability.L("trigger", "reconciler"))
	tel.Metrics().Histogram(observability.MUsecaseDuration).Observe(0.1, observability.L("use_case", "payment.verify"))
	tel.Metrics().Counter("unknown_total").Add(1)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	require.ElementsMatch(t, []string{"payments_settled_total", "usecase_duration_seconds"}, names)
}
