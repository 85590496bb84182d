// Package oteltrace adapts an OpenTelemetry tracer to observability.Tracer.
package oteltrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const scope = "github.com/Zhima-Mochi/minishop-chapa"

type tracer struct {
	t       trace.Tracer
	service attribute.KeyValue
}

// New starts spans on tp, typically otel.GetTracerProvider(). Until an SDK
// provider is installed the spans do not record but still carry the parent context.
func New(tp trace.TracerProvider, service string) observability.Tracer {
	if service == "" {
		service = "minishop"
	}
	return &tracer{
		t:       tp.Tracer(scope),
		service: attribute.String("service.name", service),
	}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append(attrs, t.service)...),
	)
}
