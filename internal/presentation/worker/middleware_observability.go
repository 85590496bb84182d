package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability/logctx"
)

// WithEventContext injects a scoped logger for background executions.
// Dynamic fields only: trace_id/span_id (if valid), event_id (generated if empty),
// plus caller-provided low-cardinality attributes (e.g. "worker", "event").
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, 3+len(attrs))

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// Subscriber decorates a domoutbox.Subscriber so that every handler runs in
// its own span with an event-scoped logger.
type Subscriber struct {
	next   domoutbox.Subscriber
	worker string
	log    observability.Logger
	tracer observability.Tracer
}

func NewSubscriber(next domoutbox.Subscriber, worker string, tel observability.Observability) *Subscriber {
	ins := observability.Resolve(tel, "")
	return &Subscriber{
		next:   next,
		worker: worker,
		log:    ins.Log.With(observability.F("component", "worker")),
		tracer: ins.Tracer,
	}
}

func (s *Subscriber) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, func(ctx context.Context, e domoutbox.Event) error {
		ctx, span := s.tracer.Start(ctx, "event "+eventName,
			attribute.String("worker", s.worker),
			attribute.String("event", eventName),
		)
		defer span.End()

		sc := span.SpanContext()
		ctx = WithEventContext(ctx, s.log, sc.TraceID(), sc.SpanID(), map[string]string{
			"worker": s.worker,
			"event":  eventName,
		})
		err := h(ctx, e)
		if err != nil {
			span.RecordError(err)
		}
		return err
	})
}
