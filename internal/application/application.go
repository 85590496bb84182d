package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability/logctx"
)

const SpanPrefix = "UC."

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// Call tracks one use case invocation: the UC.<Name> span, the RED metrics
// and the closing use_case_done log line.
//
//	ctx, call := application.Begin(ctx, ins, "order.create", "CreateOrder")
//	defer func() { call.End(err) }()
type Call struct {
	ins     observability.Instruments
	useCase string
	span    trace.Span
	log     observability.Logger
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

func Begin(ctx context.Context, ins observability.Instruments, useCase, name string, attrs ...attribute.KeyValue) (context.Context, *Call) {
	tracer := ins.Tracer
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := tracer.Start(ctx, SpanPrefix+name, attrs...)
	ctx, logger := logctx.Scoped(ctx, ins.Log, observability.F("use_case", useCase))

	return ctx, &Call{
		ins:     ins,
		useCase: useCase,
		span:    span,
		log:     logger,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

func (c *Call) Log() observability.Logger { return c.log }

func (c *Call) Span() trace.Span { return c.span }

// Fail marks the call as failed with a machine-readable status.
func (c *Call) Fail(status string) {
	c.outcome, c.status = "error", status
}

// Status replaces the status text without changing the outcome.
func (c *Call) Status(status string) {
	c.status = status
}

// With adds fields to the use_case_done line.
func (c *Call) With(fields ...observability.Field) {
	c.fields = append(c.fields, fields...)
}

func (c *Call) End(err error) {
	if err != nil && c.outcome == "success" {
		c.outcome = "error"
		if c.status == "OK" {
			c.status = "ERROR"
		}
	}
	lat := time.Since(c.start).Seconds()

	if c.span != nil {
		if err != nil {
			c.span.RecordError(err)
			c.span.SetStatus(codes.Error, c.status)
		} else {
			c.span.SetStatus(codes.Ok, c.status)
		}
		c.span.End()
	}

	c.ins.ObserveUseCase(c.useCase, c.outcome, lat)

	fields := append([]observability.Field{
		observability.F("outcome", c.outcome),
		observability.F("status", c.status),
		observability.F("latency_seconds", lat),
	}, c.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	c.log.Info("use_case_done", fields...)
}

// RetryConflicts runs fn until it returns something other than conflict, at
// most attempts times. fn must re-read the state it writes on every run.
func RetryConflicts(call *Call, attempts int, conflict error, fn func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); !errors.Is(err, conflict) {
			return err
		}
		call.Log().Warn("write_conflict", observability.F("attempt", attempt))
	}
	call.Fail("WRITE_CONFLICT")
	return err
}
