package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domcontent "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/pkg/money"
)

const (
	workerService = "notification_worker"
	useCaseNotify = "notification.send"
	mailerPeer    = "mailer"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type OrderReader interface {
	Get(ctx context.Context, id string) (*domorder.Order, error)
}

type UserReader interface {
	Get(ctx context.Context, id string) (*domuser.User, error)
}

type TemplateSource interface {
	TemplateByName(ctx context.Context, name string) (*domcontent.EmailTemplate, error)
}

type StoreInfo interface {
	StoreName(ctx context.Context) string
	SupportEmail(ctx context.Context) string
}

// Worker turns order events into customer emails.
type Worker struct {
	subscriber domoutbox.Subscriber
	orders     OrderReader
	users      UserReader
	templates  TemplateSource
	store      StoreInfo
	mailer     Mailer
	ins        observability.Instruments
}

func New(
	subscriber domoutbox.Subscriber,
	orders OrderReader,
	users UserReader,
	templates TemplateSource,
	store StoreInfo,
	mailer Mailer,
	tel observability.Observability,
) *Worker {
	return &Worker{
		subscriber: subscriber,
		orders:     orders,
		users:      users,
		templates:  templates,
		store:      store,
		mailer:     mailer,
		ins:        observability.Resolve(tel, workerService),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.mailer == nil {
		return
	}
	for _, name := range []string{
		domorder.OrderPlacedEvent{}.EventName(),
		domorder.OrderPaidEvent{}.EventName(),
		domorder.OrderPaymentFailedEvent{}.EventName(),
		domorder.OrderCancelledEvent{}.EventName(),
	} {
		w.subscriber.Subscribe(name, w.Handle)
	}
}

type ItemView struct {
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

// TemplateData is what email templates can reference.
type TemplateData struct {
	StoreName    string
	SupportEmail string
	CustomerName string
	OrderID      string
	TxRef        string
	Status       string
	Total        string
	Currency     string
	Reason       string
	Items        []ItemView
}

// Handle renders and sends the email for one order event.
func (w *Worker) Handle(ctx context.Context, e domoutbox.Event) (err error) {
	orderID, reason, tplName := "", "", ""
	switch evt := e.(type) {
	case domorder.OrderPlacedEvent:
		orderID, tplName = evt.OrderID, domcontent.TemplateOrderPlaced
	case domorder.OrderPaidEvent:
		orderID, tplName = evt.OrderID, domcontent.TemplateOrderPaid
	case domorder.OrderPaymentFailedEvent:
		orderID, reason, tplName = evt.OrderID, evt.Reason, domcontent.TemplateOrderPaymentFailed
	case domorder.OrderCancelledEvent:
		orderID, reason, tplName = evt.OrderID, evt.Reason, domcontent.TemplateOrderCancelled
	default:
		w.ins.ObserveUseCase(useCaseNotify, "ignored", 0)
		return nil
	}

	ctx, call := application.Begin(ctx, w.ins, useCaseNotify, "SendNotification",
		attribute.String("event", e.EventName()),
		attribute.String("order.id", orderID),
	)
	defer func() { call.End(err) }()
	call.With(
		observability.F("event", e.EventName()),
		observability.F("order_id", orderID),
		observability.F("template", tplName),
	)

	tpl, err := w.templates.TemplateByName(ctx, tplName)
	if err != nil {
		if errors.Is(err, domcontent.ErrNotFound) {
			call.Status("TEMPLATE_MISSING")
			call.Log().Debug("notification_skipped", observability.F("template", tplName))
			return nil
		}
		call.Fail("TEMPLATE_LOOKUP_FAILED")
		return fmt.Errorf("notification: template %s: %w", tplName, err)
	}

	o, err := w.orders.Get(ctx, orderID)
	if err != nil {
		call.Fail("ORDER_LOOKUP_FAILED")
		return fmt.Errorf("notification: order %s: %w", orderID, err)
	}
	u, err := w.users.Get(ctx, o.UserID)
	if err != nil {
		call.Fail("USER_LOOKUP_FAILED")
		return fmt.Errorf("notification: user %s: %w", o.UserID, err)
	}

	subject, body, err := tpl.Render(w.data(ctx, o, u, reason))
	if err != nil {
		call.Fail("TEMPLATE_RENDER_FAILED")
		return err
	}

	start := time.Now()
	err = w.mailer.Send(ctx, Message{To: u.Email, Subject: subject, Body: body})
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	w.ins.ObserveExternal(mailerPeer, tplName, outcome, time.Since(start).Seconds())
	if err != nil {
		call.Fail("MAIL_SEND_FAILED")
		return fmt.Errorf("notification: send: %w", err)
	}
	return nil
}

func (w *Worker) data(ctx context.Context, o *domorder.Order, u *domuser.User, reason string) TemplateData {
	if reason == "" {
		reason = o.FailureReason
	}
	items := make([]ItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemView{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: money.Format(it.UnitPrice),
			Subtotal:  money.Format(it.Subtotal),
		})
	}
	d := TemplateData{
		CustomerName: u.Name,
		OrderID:      o.ID,
		TxRef:        o.TxRef,
		Status:       string(o.Status),
		Total:        money.Format(o.Total),
		Currency:     o.Currency,
		Reason:       reason,
		Items:        items,
	}
	if w.store != nil {
		d.StoreName = w.store.StoreName(ctx)
		d.SupportEmail = w.store.SupportEmail(ctx)
	}
	return d
}
