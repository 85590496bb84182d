package payment

import (
	"context"
	"errors"
	"time"

	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability/logctx"
)

const reconcilerService = "payment-reconciler"

type ReconcilerConfig struct {
	// Grace skips payments younger than this; the customer is likely still on the checkout page.
	Grace time.Duration
	// Expiry fails payments that are still pending after this long.
	Expiry      time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	BatchSize   int
}

func (c ReconcilerConfig) withDefaults() ReconcilerConfig {
	if c.Grace <= 0 {
		c.Grace = 2 * time.Minute
	}
	if c.Expiry <= 0 {
		c.Expiry = 24 * time.Hour
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 30 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

type ReconcileStats struct {
	Checked int
	Settled int
	Errors  int
}

// Reconciler settles payments whose webhook never arrived by polling the gateway.
type Reconciler struct {
	payments dompay.Repository
	verify   Verifier
	cfg      ReconcilerConfig
	log      observability.Logger
	now      func() time.Time
}

func NewReconciler(payments dompay.Repository, verify Verifier, cfg ReconcilerConfig, tel observability.Observability) *Reconciler {
	return &Reconciler{
		payments: payments,
		verify:   verify,
		cfg:      cfg.withDefaults(),
		log:      observability.Resolve(tel, reconcilerService).Log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce verifies every due pending payment once.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileStats, error) {
	var stats ReconcileStats
	now := r.now()
	logger := logctx.FromOr(ctx, r.log)

	pending, err := r.payments.ListPending(ctx, dompay.PendingQuery{
		CreatedBefore: now.Add(-r.cfg.Grace),
		DueAt:         now,
		BaseBackoff:   r.cfg.BaseBackoff,
		MaxBackoff:    r.cfg.MaxBackoff,
		Limit:         r.cfg.BatchSize,
	})
	if err != nil {
		return stats, wrapRepo(err)
	}

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Checked++
		res, err := r.verify.Execute(ctx, VerifyPaymentInput{
			TxRef:       p.TxRef,
			Trigger:     TriggerReconciler,
			ExpireAfter: r.cfg.Expiry,
			Now:         now,
		})
		if err != nil {
			stats.Errors++
			level := logger.Warn
			if !errors.Is(err, dompay.ErrGateway) {
				level = logger.Error
			}
			level("reconcile_payment_failed",
				observability.F("tx_ref", p.TxRef),
				observability.F("attempts", p.Attempts+1),
				observability.F("error", err.Error()),
			)
			continue
		}
		if res.Changed {
			stats.Settled++
		}
	}

	if stats.Checked > 0 || stats.Errors > 0 {
		logger.Info("reconcile_done",
			observability.F("pending", len(pending)),
			observability.F("checked", stats.Checked),
			observability.F("settled", stats.Settled),
			observability.F("errors", stats.Errors),
		)
	}
	return stats, nil
}
