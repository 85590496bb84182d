package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Observability interface {
	Tracer() Tracer
	Logger() Logger
	Metrics() Metrics
}

type Metrics interface {
	Counter(name MetricKey) Counter
	Histogram(name MetricKey) Histogram
}

// Tracer is a thin wrapper to start spans.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Counter is a thin wrapper to add metrics.
type Counter interface {
	Add(delta float64, labels ...Label)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
}

type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }

type Field struct {
	Key   string
	Value any
}

func F(k string, v any) Field { return Field{Key: k, Value: v} }

// Logger is a thin wrapper to log messages.
type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

type MetricKey string

// Instruments bundles what a use case needs from an Observability: a service-scoped
// logger, a tracer and the RED instruments. A nil Observability yields no-ops.
type Instruments struct {
	Log          Logger
	Tracer       Tracer
	Requests     Counter // usecase_requests_total{use_case,outcome}
	Duration     Histogram
	ExtRequests  Counter // external_requests_total{peer,endpoint,outcome}
	ExtDuration  Histogram
	PublishFails Counter // event_publish_failed_total{event}
}

func Resolve(tel Observability, service string) Instruments {
	logger := NopLogger()
	tracer := NopTracer()
	metrics := NopMetrics()
	if tel != nil {
		if l := tel.Logger(); l != nil {
			logger = l
		}
		if t := tel.Tracer(); t != nil {
			tracer = t
		}
		if m := tel.Metrics(); m != nil {
			metrics = m
		}
	}
	if service != "" {
		logger = logger.With(F("service", service))
	}
	return Instruments{
		Log:          logger,
		Tracer:       tracer,
		Requests:     metrics.Counter(MUsecaseRequests),
		Duration:     metrics.Histogram(MUsecaseDuration),
		ExtRequests:  metrics.Counter(MExternalRequests),
		ExtDuration:  metrics.Histogram(MExternalRequestDuration),
		PublishFails: metrics.Counter(MEventPublishFailures),
	}
}

// ObserveUseCase records one use case invocation on the RED instruments.
func (i Instruments) ObserveUseCase(useCase, outcome string, latencySeconds float64) {
	if i.Requests != nil {
		i.Requests.Add(1, L("use_case", useCase), L("outcome", outcome))
	}
	if i.Duration != nil {
		i.Duration.Observe(latencySeconds, L("use_case", useCase))
	}
}

// ObserveExternal records one outbound call (gateway, outbox, mailer).
func (i Instruments) ObserveExternal(peer, endpoint, outcome string, latencySeconds float64) {
	if i.ExtRequests != nil {
		i.ExtRequests.Add(1, L("peer", peer), L("endpoint", endpoint), L("outcome", outcome))
	}
	if i.ExtDuration != nil {
		i.ExtDuration.Observe(latencySeconds, L("peer", peer), L("endpoint", endpoint))
	}
}

// TraceFields returns trace_id/span_id log fields when ctx carries a valid span.
func TraceFields(ctx context.Context) []Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []Field{
		F("trace_id", sc.TraceID().String()),
		F("span_id", sc.SpanID().String()),
	}
}
