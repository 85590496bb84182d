package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	appcontent "github.com/Zhima-Mochi/minishop-chapa/internal/application/content"
	domcontent "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type subscriptions map[string]domoutbox.Handler

func (s subscriptions) Subscribe(name string, h domoutbox.Handler) { s[name] = h }

type fixture struct {
	worker  *Worker
	mailer  *recordingMailer
	content *appcontent.Service
	order   *domorder.Order
}

func newFixture(t *testing.T, seed bool) *fixture {
	t.Helper()
	ctx := context.Background()
	orders := memory.NewOrderRepository()
	users := memory.NewUserRepository()
	content := appcontent.NewService(appcontent.Repositories{
		Banners:   memory.NewBannerRepository(),
		Pages:     memory.NewPageRepository(),
		Templates: memory.NewTemplateRepository(),
		Settings:  memory.NewSettingRepository(),
	}, id.NewUUIDGenerator(), "ETB", observability.Nop())
	if seed {
		require.NoError(t, content.SeedDefaults(ctx, "Bunna House"))
	}

	u, err := domuser.New("u1", "Abebe Kebede", "abebe@example.com", "", "hash", domuser.RoleCustomer)
	require.NoError(t, err)
	require.NoError(t, users.Insert(ctx, u))

	o, err := domorder.New("o1", "u1", "minishop-tx1", "", "ETB", []domorder.Item{
		{ProductID: "coffee", Name: "Coffee", UnitPrice: 25000, Quantity: 2},
	})
	require.NoError(t, err)
	require.NoError(t, orders.Insert(ctx, o))

	mailer := &recordingMailer{}
	return &fixture{
		worker:  New(subscriptions{}, orders, users, content, content, mailer, observability.Nop()),
		mailer:  mailer,
		content: content,
		order:   o,
	}
}

func TestStartSubscribesToOrderEvents(t *testing.T) {
	f := newFixture(t, true)
	subs := subscriptions{}
	f.worker.subscriber = subs
	f.worker.Start()

	require.Len(t, subs, 4)
	require.Contains(t, subs, "order.placed")
	require.Contains(t, subs, "order.payment_failed")
}

func TestSendsRenderedTemplate(t *testing.T) {
	f := newFixture(t, true)

	require.NoError(t, f.worker.Handle(context.Background(), domorder.NewOrderPaidEvent(f.order)))
	require.Len(t, f.mailer.sent, 1)

	msg := f.mailer.sent[0]
	require.Equal(t, "abebe@example.com", msg.To)
	require.Equal(t, "Bunna House: payment received for order o1", msg.Subject)
	require.Contains(t, msg.Body, "Hi Abebe Kebede")
	require.Contains(t, msg.Body, "500.00 ETB")
	require.Contains(t, msg.Body, "Coffee x2: 500.00 ETB")
}

func TestFailureReasonReachesTemplate(t *testing.T) {
	f := newFixture(t, true)

	err := f.worker.Handle(context.Background(), domorder.NewOrderPaymentFailedEvent(f.order, "expired"))
	require.NoError(t, err)
	require.Len(t, f.mailer.sent, 1)
	require.Contains(t, f.mailer.sent[0].Body, "(expired)")
}

func TestMissingTemplateIsSkipped(t *testing.T) {
	f := newFixture(t, false)

	require.NoError(t, f.worker.Handle(context.Background(), domorder.NewOrderPlacedEvent(f.order)))
	require.Empty(t, f.mailer.sent)

	_, err := f.content.CreateTemplate(context.Background(), appcontent.TemplateInput{
		Name:    domcontent.TemplateOrderPlaced,
		Subject: "Order {{.OrderID}}",
		Body:    "{{.Total}} {{.Currency}}",
	})
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(context.Background(), domorder.NewOrderPlacedEvent(f.order)))
	require.Len(t, f.mailer.sent, 1)
	require.Equal(t, "500.00 ETB", f.mailer.sent[0].Body)
}

func TestMailerErrorIsReturned(t *testing.T) {
	f := newFixture(t, true)
	f.mailer.err = errors.New("smtp down")

	err := f.worker.Handle(context.Background(), domorder.NewOrderCancelledEvent(f.order, "customer"))
	require.ErrorContains(t, err, "smtp down")
}

type otherEvent struct{}

func (otherEvent) EventName() string { return "payment.succeeded" }

func TestIgnoresOtherEvents(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.worker.Handle(context.Background(), otherEvent{}))
	require.Empty(t, f.mailer.sent)
}
