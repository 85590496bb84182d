package workerpresentation

import (
	"context"
	"time"

	apppay "github.com/Zhima-Mochi/minishop-chapa/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const workerReconciler = "payment_reconciler"

type reconciler interface {
	RunOnce(ctx context.Context) (apppay.ReconcileStats, error)
}

// ReconcilerRunner drives the payment reconciler on a fixed interval until
// its context is cancelled.
type ReconcilerRunner struct {
	rec      reconciler
	interval time.Duration
	log      observability.Logger
	tracer   observability.Tracer
}

func NewReconcilerRunner(rec reconciler, interval time.Duration, tel observability.Observability) *ReconcilerRunner {
	if interval <= 0 {
		interval = time.Minute
	}
	ins := observability.Resolve(tel, "")
	return &ReconcilerRunner{
		rec:      rec,
		interval: interval,
		log:      ins.Log.With(observability.F("component", "worker"), observability.F("worker", workerReconciler)),
		tracer:   ins.Tracer,
	}
}

// Run performs a pass immediately, then one per interval. It returns when ctx is done.
func (r *ReconcilerRunner) Run(ctx context.Context) {
	r.log.Info("worker_started", observability.F("interval", r.interval.String()))
	defer r.log.Info("worker_stopped")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		r.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *ReconcilerRunner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := r.tracer.Start(ctx, "ReconcilePayments")
	defer span.End()
	sc := span.SpanContext()
	ctx = WithEventContext(ctx, r.log, sc.TraceID(), sc.SpanID(), nil)

	if _, err := r.rec.RunOnce(ctx); err != nil && ctx.Err() == nil {
		span.RecordError(err)
		r.log.Error("reconcile_pass_failed", observability.F("error", err.Error()))
	}
}
