package workerpresentation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	apppay "github.com/Zhima-Mochi/minishop-chapa/internal/application/payment"
	domoutbox "github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability/logctx"
)

type recordingLogger struct {
	observability.Logger
	fields map[string]any
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{Logger: observability.NopLogger(), fields: map[string]any{}}
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	next := newRecordingLogger()
	for k, v := range l.fields {
		next.fields[k] = v
	}
	for _, f := range fields {
		next.fields[f.Key] = f.Value
	}
	return next
}

type testTelemetry struct{ log observability.Logger }

func (t testTelemetry) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t testTelemetry) Logger() observability.Logger   { return t.log }
func (t testTelemetry) Metrics() observability.Metrics { return observability.NopMetrics() }

type event string

func (e event) EventName() string { return string(e) }

type subscriptions map[string]domoutbox.Handler

func (s subscriptions) Subscribe(name string, h domoutbox.Handler) { s[name] = h }

func TestWithEventContext(t *testing.T) {
	traceID := trace.TraceID{1, 2, 3}
	spanID := trace.SpanID{4, 5, 6}

	ctx := WithEventContext(context.Background(), newRecordingLogger(), traceID, spanID,
		map[string]string{"event_id": "evt-1", "worker": "notifications", "empty": ""})

	got, ok := logctx.From(ctx).(*recordingLogger)
	require.True(t, ok)
	assert.Equal(t, "evt-1", got.fields["event_id"])
	assert.Equal(t, traceID.String(), got.fields["trace_id"])
	assert.Equal(t, spanID.String(), got.fields["span_id"])
	assert.Equal(t, "notifications", got.fields["worker"])
	assert.NotContains(t, got.fields, "empty")
}

func TestWithEventContextGeneratesEventID(t *testing.T) {
	ctx := WithEventContext(context.Background(), newRecordingLogger(), trace.TraceID{}, trace.SpanID{}, nil)

	got := logctx.From(ctx).(*recordingLogger)
	assert.NotEmpty(t, got.fields["event_id"])
	assert.NotContains(t, got.fields, "trace_id")
	assert.NotContains(t, got.fields, "span_id")
}

func TestSubscriberScopesHandlerLogger(t *testing.T) {
	subs := subscriptions{}
	sub := NewSubscriber(subs, "notifications", testTelemetry{log: newRecordingLogger()})

	var seen *recordingLogger
	boom := errors.New("boom")
	sub.Subscribe("order.paid", func(ctx context.Context, _ domoutbox.Event) error {
		seen, _ = logctx.From(ctx).(*recordingLogger)
		return boom
	})

	require.Contains(t, subs, "order.paid")
	err := subs["order.paid"](context.Background(), event("order.paid"))
	require.ErrorIs(t, err, boom)
	require.NotNil(t, seen)
	assert.Equal(t, "notifications", seen.fields["worker"])
	assert.Equal(t, "order.paid", seen.fields["event"])
	assert.Equal(t, "worker", seen.fields["component"])
}

type countingReconciler struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingReconciler) RunOnce(ctx context.Context) (apppay.ReconcileStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if logctx.From(ctx) == nil {
		return apppay.ReconcileStats{}, errors.New("no scoped logger")
	}
	return apppay.ReconcileStats{Checked: 1}, r.err
}

func (r *countingReconciler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestReconcilerRunnerTicksUntilCancelled(t *testing.T) {
	rec := &countingReconciler{err: errors.New("gateway down")}
	runner := NewReconcilerRunner(rec, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var stopped atomic.Bool
	go func() {
		runner.Run(ctx)
		stopped.Store(true)
	}()

	require.Eventually(t, func() bool { return rec.count() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.Eventually(t, stopped.Load, time.Second, time.Millisecond)

	n := rec.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, rec.count())
}
