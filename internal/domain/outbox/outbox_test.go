package outbox_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
)

type plainEvent struct{}

func (plainEvent) EventName() string { return "catalog.low_stock" }

func TestOrderID(t *testing.T) {
	o := &domorder.Order{ID: "o1", UserID: "u1"}
	p := &dompay.Payment{ID: "p1", OrderID: "o1"}

	for _, e := range []outbox.Event{
		domorder.NewOrderPlacedEvent(o),
		domorder.NewOrderPaidEvent(o),
		domorder.NewOrderPaymentFailedEvent(o, "declined"),
		domorder.NewOrderCancelledEvent(o, "cancelled_by_customer"),
		dompay.NewPaymentSucceededEvent(p),
		dompay.NewPaymentFailedEvent(p),
	} {
		assert.Equal(t, "o1", outbox.OrderID(e), e.EventName())
	}
	assert.Empty(t, outbox.OrderID(plainEvent{}))
}
