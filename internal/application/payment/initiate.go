package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const (
	paymentService          = "payment-service"
	useCasePaymentInitiate  = "payment.initiate"
	gatewayPeer             = "chapa"
	defaultGatewayTimeout   = 15 * time.Second
	defaultCheckoutTitle    = "Minishop order"
	checkoutDescriptionTmpl = "Payment for order %s"
)

var (
	ErrNotFound        = dompay.ErrNotFound
	ErrOrderNotPayable = errors.New("payment: order is not awaiting payment")
	ErrValidation      = errors.New("payment: validation failed")
	ErrRepository      = errors.New("payment: repository failure")
)

type InitiatePaymentInput struct {
	UserID  string
	OrderID string
}

type InitiatePaymentResult struct {
	PaymentID   string
	TxRef       string
	CheckoutURL string
	// Reused is true when an open checkout for the order already existed.
	Reused bool
}

// InitiatePaymentUseCase opens a hosted checkout for a pending order.
type InitiatePaymentUseCase struct {
	orders   domorder.Repository
	payments dompay.Repository
	users    UserReader
	gateway  dompay.Gateway
	ids      IDGenerator
	txRefs   TxRefGenerator
	urls     URLs
	timeout  time.Duration
	locks    *keyLocks
	ins      observability.Instruments
}

func NewInitiatePaymentUseCase(
	orders domorder.Repository,
	payments dompay.Repository,
	users UserReader,
	gateway dompay.Gateway,
	ids IDGenerator,
	txRefs TxRefGenerator,
	urls URLs,
	timeout time.Duration,
	tel observability.Observability,
) *InitiatePaymentUseCase {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &InitiatePaymentUseCase{
		orders:   orders,
		payments: payments,
		users:    users,
		gateway:  gateway,
		ids:      ids,
		txRefs:   txRefs,
		urls:     urls,
		timeout:  timeout,
		locks:    newKeyLocks(),
		ins:      observability.Resolve(tel, paymentService),
	}
}

func (uc *InitiatePaymentUseCase) Execute(ctx context.Context, cmd InitiatePaymentInput) (_ *InitiatePaymentResult, err error) {
	ctx, call := application.Begin(ctx, uc.ins, useCasePaymentInitiate, "InitiatePayment",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { call.End(err) }()

	if cmd.OrderID == "" || cmd.UserID == "" {
		call.Fail("INPUT_INVALID")
		return nil, fmt.Errorf("%w: order id and user id are required", ErrValidation)
	}

	unlock := uc.locks.Lock(cmd.OrderID)
	defer unlock()

	order, err := uc.orders.Get(ctx, cmd.OrderID)
	if err != nil || order.UserID != cmd.UserID {
		call.Fail("ORDER_LOOKUP_FAILED")
		if err == nil || errors.Is(err, domorder.ErrNotFound) {
			return nil, domorder.ErrNotFound
		}
		return nil, wrapRepo(err)
	}
	if !order.CanProcessPayment() {
		call.Fail("ORDER_NOT_PAYABLE")
		return nil, fmt.Errorf("%w: status %s", ErrOrderNotPayable, order.Status)
	}

	p, err := uc.payments.FindPendingByOrder(ctx, order.ID)
	switch {
	case err == nil && p.CheckoutURL != "":
		call.Status("REUSED_CHECKOUT")
		call.With(observability.F("tx_ref", p.TxRef))
		return &InitiatePaymentResult{PaymentID: p.ID, TxRef: p.TxRef, CheckoutURL: p.CheckoutURL, Reused: true}, nil
	case err == nil:
		// a previous attempt stored the payment but never got a checkout url
	case errors.Is(err, dompay.ErrNotFound):
		p, err = uc.newPayment(ctx, order)
		if err != nil {
			call.Fail("PAYMENT_INSERT_FAILED")
			return nil, err
		}
	default:
		call.Fail("PAYMENT_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	call.With(observability.F("tx_ref", p.TxRef), observability.F("payment_id", p.ID))

	u, err := uc.users.Get(ctx, order.UserID)
	if err != nil {
		call.Fail("USER_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	first, last := u.FirstLastName()

	res, gerr := uc.initialize(ctx, dompay.InitRequest{
		TxRef:       p.TxRef,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Email:       u.Email,
		FirstName:   first,
		LastName:    last,
		PhoneNumber: firstNonEmpty(order.Phone, u.Phone),
		Title:       defaultCheckoutTitle,
		Description: fmt.Sprintf(checkoutDescriptionTmpl, order.ID),
		CallbackURL: uc.urls.Callback,
		ReturnURL:   uc.urls.returnFor(order.ID, p.TxRef),
	})
	if gerr != nil {
		if _, ferr := p.Fail(dompay.ReasonGatewayError); ferr == nil {
			if uerr := uc.payments.Update(context.WithoutCancel(ctx), p); uerr != nil {
				call.Log().Error("payment_update_failed", observability.F("error", uerr.Error()))
			}
		}
		call.Fail("GATEWAY_INITIALIZE_FAILED")
		return nil, fmt.Errorf("%w: initialize: %w", dompay.ErrGateway, gerr)
	}

	p.CheckoutURL = res.CheckoutURL
	p.UpdatedAt = time.Now().UTC()
	if err := uc.payments.Update(ctx, p); err != nil {
		call.Fail("PAYMENT_UPDATE_FAILED")
		return nil, wrapRepo(err)
	}
	return &InitiatePaymentResult{PaymentID: p.ID, TxRef: p.TxRef, CheckoutURL: p.CheckoutURL}, nil
}

// newPayment stores a pending payment before the gateway is called so that an
// early webhook can already find it. The order's tx_ref is used for the first
// attempt; later attempts need a fresh one because the gateway keeps it unique.
func (uc *InitiatePaymentUseCase) newPayment(ctx context.Context, order *domorder.Order) (*dompay.Payment, error) {
	txRef := order.TxRef
	if _, err := uc.payments.FindByTxRef(ctx, txRef); err == nil {
		txRef = uc.txRefs.NewTxRef()
	} else if !errors.Is(err, dompay.ErrNotFound) {
		return nil, wrapRepo(err)
	}

	p, err := dompay.New(uc.ids.NewID(), order.ID, order.UserID, txRef, order.Total, order.Currency)
	if err != nil {
		return nil, err
	}
	if err := uc.payments.Insert(ctx, p); err != nil {
		return nil, wrapRepo(err)
	}
	return p, nil
}

func (uc *InitiatePaymentUseCase) initialize(ctx context.Context, req dompay.InitRequest) (*dompay.InitResult, error) {
	gctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	res, err := uc.gateway.Initialize(gctx, req)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	uc.ins.ObserveExternal(gatewayPeer, "initialize", outcome, time.Since(start).Seconds())
	return res, err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, dompay.ErrNotFound), errors.Is(err, domorder.ErrNotFound), errors.Is(err, domorder.ErrConflict):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
