package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const (
	useCasePaymentVerify = "payment.verify"
	publishTimeout       = 300 * time.Millisecond

	TriggerManual     = "manual"
	TriggerWebhook    = "webhook"
	TriggerReconciler = "reconciler"

	reasonOutOfStock = "out_of_stock_after_payment"

	// maxOrderWrites bounds the re-read and re-apply rounds after a concurrent order write.
	maxOrderWrites = 3
)

type VerifyPaymentInput struct {
	TxRef   string
	Trigger string
	// ExpireAfter fails a payment the gateway still reports as pending once it
	// is older than this. Zero disables expiry.
	ExpireAfter time.Duration
	Now         time.Time
}

type VerifyPaymentResult struct {
	Payment *dompay.Payment
	Order   *domorder.Order
	// Changed is false when nothing was written, e.g. on a repeated verification.
	Changed bool
}

// VerifyPaymentUseCase asks the gateway for the authoritative state of a
// transaction and settles the payment and its order accordingly.
type VerifyPaymentUseCase struct {
	payments  dompay.Repository
	orders    domorder.Repository
	products  domcatalog.ProductRepository
	gateway   dompay.Gateway
	publisher domoutbox.Publisher
	timeout   time.Duration
	locks     *keyLocks
	ins       observability.Instruments
	settled   observability.Counter // payments_settled_total{status,trigger}
}

func NewVerifyPaymentUseCase(
	payments dompay.Repository,
	orders domorder.Repository,
	products domcatalog.ProductRepository,
	gateway dompay.Gateway,
	publisher domoutbox.Publisher,
	timeout time.Duration,
	tel observability.Observability,
) *VerifyPaymentUseCase {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	metrics := observability.NopMetrics()
	if tel != nil && tel.Metrics() != nil {
		metrics = tel.Metrics()
	}
	return &VerifyPaymentUseCase{
		payments:  payments,
		orders:    orders,
		products:  products,
		gateway:   gateway,
		publisher: publisher,
		timeout:   timeout,
		locks:     newKeyLocks(),
		ins:       observability.Resolve(tel, paymentService),
		settled:   metrics.Counter(observability.MPaymentsSettled),
	}
}

func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, cmd VerifyPaymentInput) (_ *VerifyPaymentResult, err error) {
	if cmd.Trigger == "" {
		cmd.Trigger = TriggerManual
	}
	ctx, call := application.Begin(ctx, uc.ins, useCasePaymentVerify, "VerifyPayment",
		attribute.String("payment.tx_ref", cmd.TxRef),
		attribute.String("payment.trigger", cmd.Trigger),
	)
	defer func() { call.End(err) }()
	call.With(observability.F("tx_ref", cmd.TxRef), observability.F("trigger", cmd.Trigger))

	if strings.TrimSpace(cmd.TxRef) == "" {
		call.Fail("TX_REF_REQUIRED")
		return nil, fmt.Errorf("%w: tx_ref is required", ErrValidation)
	}
	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	unlock := uc.locks.Lock(cmd.TxRef)
	defer unlock()

	p, err := uc.payments.FindByTxRef(ctx, cmd.TxRef)
	if err != nil {
		call.Fail("PAYMENT_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	res := &VerifyPaymentResult{Payment: p}

	if p.Status == dompay.StatusSuccess {
		// the gateway has nothing new to say; only the order may lag behind
		call.Status("ALREADY_SETTLED")
		err = uc.settleOrderPaid(ctx, call, res, false, false)
	} else {
		err = uc.settleWithGateway(ctx, call, res, cmd, now)
	}
	if err != nil {
		return nil, err
	}

	if res.Order == nil {
		res.Order, err = uc.orders.Get(ctx, p.OrderID)
		if err != nil {
			call.Fail("ORDER_LOOKUP_FAILED")
			return nil, wrapRepo(err)
		}
	}
	call.With(
		observability.F("payment_status", string(p.Status)),
		observability.F("order_status", string(res.Order.Status)),
	)
	return res, nil
}

func (uc *VerifyPaymentUseCase) settleWithGateway(ctx context.Context, call *application.Call, res *VerifyPaymentResult, cmd VerifyPaymentInput, now time.Time) error {
	p := res.Payment
	v, gerr := uc.verify(ctx, p.TxRef)
	gatewayStatus := dompay.GatewayPending
	switch {
	case gerr == nil:
		gatewayStatus = v.Status
	case errors.Is(gerr, dompay.ErrTransactionNotFound):
		// nothing paid yet
	default:
		if cmd.Trigger == TriggerReconciler {
			uc.recordCheck(ctx, call, p, now)
		}
		call.Fail("GATEWAY_VERIFY_FAILED")
		return fmt.Errorf("%w: verify: %w", dompay.ErrGateway, gerr)
	}
	call.With(observability.F("gateway_status", string(gatewayStatus)))

	switch gatewayStatus {
	case dompay.GatewaySuccess:
		if reason := mismatch(p, v); reason != "" {
			call.Log().Warn("payment_amount_mismatch",
				observability.F("expected_amount", p.Amount),
				observability.F("expected_currency", p.Currency),
				observability.F("gateway_amount", v.Amount),
				observability.F("gateway_currency", v.Currency),
			)
			return uc.applyFailure(ctx, call, res, reason, cmd.Trigger)
		}
		return uc.applySuccess(ctx, call, res, v.Reference, cmd.Trigger)
	case dompay.GatewayFailed:
		return uc.applyFailure(ctx, call, res, dompay.ReasonDeclined, cmd.Trigger)
	}
	if p.Status == dompay.StatusFailed {
		return uc.settleOrderFailed(ctx, call, res, false)
	}
	if cmd.ExpireAfter > 0 && now.Sub(p.CreatedAt) >= cmd.ExpireAfter {
		return uc.applyFailure(ctx, call, res, dompay.ReasonExpired, cmd.Trigger)
	}
	if cmd.Trigger == TriggerReconciler {
		uc.recordCheck(ctx, call, p, now)
	}
	call.Status("STILL_PENDING")
	return nil
}

func (uc *VerifyPaymentUseCase) applySuccess(ctx context.Context, call *application.Call, res *VerifyPaymentResult, reference, trigger string) error {
	p := res.Payment
	late := p.Status == dompay.StatusFailed
	changed, err := p.Succeed(reference)
	if err != nil {
		call.Fail("STATE_TRANSITION_FAILED")
		return err
	}
	if changed {
		if err := uc.payments.Update(ctx, p); err != nil {
			call.Fail("PAYMENT_UPDATE_FAILED")
			return wrapRepo(err)
		}
		res.Changed = true
		uc.count(dompay.StatusSuccess, trigger)
		uc.publish(ctx, call, dompay.NewPaymentSucceededEvent(p))
	}
	return uc.settleOrderPaid(ctx, call, res, changed, late)
}

// settleOrderPaid moves the order of a successful payment forward. Repeating
// it is harmless, so a retry after a failed order write completes the job.
// fresh is set when this call settled the payment; only then are refunds flagged.
func (uc *VerifyPaymentUseCase) settleOrderPaid(ctx context.Context, call *application.Call, res *VerifyPaymentResult, fresh, late bool) error {
	p := res.Payment
	return application.RetryConflicts(call, maxOrderWrites, domorder.ErrConflict, func() error {
		o, err := uc.orders.Get(ctx, p.OrderID)
		if err != nil {
			call.Fail("ORDER_LOOKUP_FAILED")
			return wrapRepo(err)
		}
		res.Order = o

		reserved := false
		switch o.Status {
		case domorder.StatusPending:
		case domorder.StatusCancelled:
			if fresh {
				uc.refundRequired(call, p, o, "order_cancelled")
				call.Status("PAID_AFTER_CANCEL")
			}
			return nil
		case domorder.StatusPaymentFailed:
			if o.FailureReason == reasonOutOfStock {
				if fresh {
					uc.refundRequired(call, p, o, reasonOutOfStock)
					call.Status("PAID_OUT_OF_STOCK")
				}
				return nil
			}
			// stock went back to the catalog when the order failed
			if rerr := uc.products.Reserve(ctx, o.StockLines()); rerr != nil {
				return uc.failPaidOrder(ctx, call, p, o)
			}
			reserved = true
		default:
			if fresh {
				uc.refundRequired(call, p, o, "order_already_paid")
				call.Status("PAID_DUPLICATE")
			}
			return nil
		}

		if err := o.PaymentSucceeded(); err != nil {
			uc.undoReserve(ctx, call, o, reserved)
			call.Fail("STATE_TRANSITION_FAILED")
			return err
		}
		if err := uc.orders.Update(ctx, o); err != nil {
			uc.undoReserve(ctx, call, o, reserved)
			return uc.orderWriteFailed(call, err)
		}
		res.Changed = true
		switch {
		case late:
			call.Status("LATE_SUCCESS")
		case !fresh:
			call.Status("ORDER_REPAIRED")
		}
		uc.publish(ctx, call, domorder.NewOrderPaidEvent(o))
		return nil
	})
}

// failPaidOrder records that a paid order could not get its stock back.
func (uc *VerifyPaymentUseCase) failPaidOrder(ctx context.Context, call *application.Call, p *dompay.Payment, o *domorder.Order) error {
	if err := o.PaymentFailed(reasonOutOfStock); err != nil {
		call.Fail("STATE_TRANSITION_FAILED")
		return err
	}
	if err := uc.orders.Update(ctx, o); err != nil {
		return uc.orderWriteFailed(call, err)
	}
	uc.refundRequired(call, p, o, reasonOutOfStock)
	call.Status("PAID_OUT_OF_STOCK")
	return nil
}

func (uc *VerifyPaymentUseCase) applyFailure(ctx context.Context, call *application.Call, res *VerifyPaymentResult, reason, trigger string) error {
	p := res.Payment
	changed, err := p.Fail(reason)
	if err != nil {
		call.Fail("STATE_TRANSITION_FAILED")
		return err
	}
	if changed {
		if err := uc.payments.Update(ctx, p); err != nil {
			call.Fail("PAYMENT_UPDATE_FAILED")
			return wrapRepo(err)
		}
		res.Changed = true
		uc.count(dompay.StatusFailed, trigger)
		call.With(observability.F("failure_reason", reason))
		uc.publish(ctx, call, dompay.NewPaymentFailedEvent(p))
	}
	return uc.settleOrderFailed(ctx, call, res, changed)
}

// settleOrderFailed fails a pending order and returns its stock. A payment that
// was already failed only drags the order along when no newer attempt is open.
func (uc *VerifyPaymentUseCase) settleOrderFailed(ctx context.Context, call *application.Call, res *VerifyPaymentResult, fresh bool) error {
	p := res.Payment
	if !fresh && p.FailureReason == dompay.ReasonGatewayError {
		return nil
	}
	return application.RetryConflicts(call, maxOrderWrites, domorder.ErrConflict, func() error {
		o, err := uc.orders.Get(ctx, p.OrderID)
		if err != nil {
			call.Fail("ORDER_LOOKUP_FAILED")
			return wrapRepo(err)
		}
		res.Order = o
		if o.Status != domorder.StatusPending {
			return nil
		}
		if !fresh {
			_, err := uc.payments.FindPendingByOrder(ctx, o.ID)
			switch {
			case err == nil:
				return nil
			case !errors.Is(err, dompay.ErrNotFound):
				call.Fail("PAYMENT_LOOKUP_FAILED")
				return wrapRepo(err)
			}
		}

		if err := o.PaymentFailed(p.FailureReason); err != nil {
			call.Fail("STATE_TRANSITION_FAILED")
			return err
		}
		if err := uc.orders.Update(ctx, o); err != nil {
			return uc.orderWriteFailed(call, err)
		}
		res.Changed = true
		if !fresh {
			call.Status("ORDER_REPAIRED")
		}
		if err := uc.products.Release(ctx, o.StockLines()); err != nil {
			call.Log().Error("stock_release_failed",
				observability.F("order_id", o.ID),
				observability.F("error", err.Error()),
			)
		}
		uc.publish(ctx, call, domorder.NewOrderPaymentFailedEvent(o, p.FailureReason))
		return nil
	})
}

// orderWriteFailed passes conflicts through for a retry and fails the call otherwise.
func (uc *VerifyPaymentUseCase) orderWriteFailed(call *application.Call, err error) error {
	if errors.Is(err, domorder.ErrConflict) {
		return err
	}
	call.Fail("ORDER_UPDATE_FAILED")
	return wrapRepo(err)
}

func (uc *VerifyPaymentUseCase) undoReserve(ctx context.Context, call *application.Call, o *domorder.Order, reserved bool) {
	if !reserved {
		return
	}
	if err := uc.products.Release(context.WithoutCancel(ctx), o.StockLines()); err != nil {
		call.Log().Error("stock_release_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
	}
}

func (uc *VerifyPaymentUseCase) recordCheck(ctx context.Context, call *application.Call, p *dompay.Payment, now time.Time) {
	p.RecordCheck(now)
	if err := uc.payments.Update(ctx, p); err != nil {
		call.Log().Warn("payment_check_record_failed", observability.F("error", err.Error()))
	}
}

func (uc *VerifyPaymentUseCase) refundRequired(call *application.Call, p *dompay.Payment, o *domorder.Order, reason string) {
	call.Log().Warn("payment_refund_required",
		observability.F("payment_id", p.ID),
		observability.F("order_id", o.ID),
		observability.F("amount", p.Amount),
		observability.F("currency", p.Currency),
		observability.F("reason", reason),
	)
}

func (uc *VerifyPaymentUseCase) verify(ctx context.Context, txRef string) (*dompay.Verification, error) {
	gctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	v, err := uc.gateway.Verify(gctx, txRef)
	outcome := "success"
	switch {
	case errors.Is(err, dompay.ErrTransactionNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	uc.ins.ObserveExternal(gatewayPeer, "verify", outcome, time.Since(start).Seconds())
	return v, err
}

func (uc *VerifyPaymentUseCase) publish(ctx context.Context, call *application.Call, e domoutbox.Event) {
	if uc.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	if err := uc.publisher.Publish(pubCtx, e); err != nil {
		outcome = "error"
		uc.ins.PublishFails.Add(1, observability.L("event", e.EventName()))
		call.Log().Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
	uc.ins.ObserveExternal("outbox", e.EventName(), outcome, time.Since(start).Seconds())
}

func (uc *VerifyPaymentUseCase) count(status dompay.Status, trigger string) {
	if uc.settled != nil {
		uc.settled.Add(1, observability.L("status", string(status)), observability.L("trigger", trigger))
	}
}

// mismatch compares what the gateway collected with what the order asked for.
func mismatch(p *dompay.Payment, v *dompay.Verification) string {
	if v.Amount != p.Amount {
		return dompay.ReasonAmountMismatch
	}
	if v.Currency != "" && !strings.EqualFold(v.Currency, p.Currency) {
		return dompay.ReasonAmountMismatch
	}
	return ""
}
