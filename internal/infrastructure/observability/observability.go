// Package observability assembles the zap, Prometheus and OpenTelemetry
// adapters into the observability.Observability the application consumes.
package observability

import (
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

type instrument struct {
	key    observability.MetricKey
	help   string
	labels []string
}

var counterCatalog = []instrument{
	{observability.MUsecaseRequests, "Use case invocations by outcome.", []string{"use_case", "outcome"}},
	{observability.MHTTPRequests, "HTTP requests by route and status.", []string{"method", "route", "status"}},
	{observability.MExternalRequests, "Outbound calls to the gateway and the event bus.", []string{"peer", "endpoint", "outcome"}},
	{observability.MEventPublishFailures, "Domain events that could not be queued.", []string{"event"}},
	{observability.MPaymentsSettled, "Payments settled by outcome and trigger.", []string{"status", "trigger"}},
}

var histogramCatalog = []instrument{
	{observability.MUsecaseDuration, "Use case latency in seconds.", []string{"use_case"}},
	{observability.MHTTPRequestDuration, "HTTP request latency in seconds.", []string{"method", "route", "status"}},
	{observability.MExternalRequestDuration, "Outbound call latency in seconds.", []string{"peer", "endpoint"}},
}

type provider struct {
	tracer     observability.Tracer
	logger     observability.Logger
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

// NewPrometheus registers every shop instrument on reg. Nil tracer or logger fall back to no-ops.
func NewPrometheus(tracer observability.Tracer, logger observability.Logger, reg prometrics.Registry) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	p := &provider{
		tracer:     tracer,
		logger:     logger,
		counters:   make(map[observability.MetricKey]observability.Counter, len(counterCatalog)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(histogramCatalog)),
	}
	for _, in := range counterCatalog {
		p.counters[in.key] = reg.Counter(string(in.key), in.help, in.labels...)
	}
	for _, in := range histogramCatalog {
		p.histograms[in.key] = reg.Histogram(string(in.key), in.help, nil, in.labels...)
	}
	return p
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p }

// Counter returns a no-op for keys outside the catalog.
func (p *provider) Counter(key observability.MetricKey) observability.Counter {
	if c, ok := p.counters[key]; ok {
		return c
	}
	return observability.NopCounter()
}

func (p *provider) Histogram(key observability.MetricKey) observability.Histogram {
	if h, ok := p.histograms[key]; ok {
		return h
	}
	return observability.NopHistogram()
}
