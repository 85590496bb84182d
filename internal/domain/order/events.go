package order

import "time"

// OrderPlacedEvent is emitted after checkout persisted a new order with its stock reserved.
type OrderPlacedEvent struct {
	OrderID    string
	UserID     string
	TxRef      string
	Total      int64
	Currency   string
	OccurredAt time.Time
}

func (OrderPlacedEvent) EventName() string  { return "order.placed" }
func (e OrderPlacedEvent) OrderKey() string { return e.OrderID }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TxRef:      o.TxRef,
		Total:      o.Total,
		Currency:   o.Currency,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaidEvent is emitted when a payment for the order has been confirmed by the gateway.
type OrderPaidEvent struct {
	OrderID    string
	UserID     string
	TxRef      string
	Total      int64
	Currency   string
	OccurredAt time.Time
}

func (OrderPaidEvent) EventName() string  { return "order.paid" }
func (e OrderPaidEvent) OrderKey() string { return e.OrderID }

func NewOrderPaidEvent(o *Order) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TxRef:      o.TxRef,
		Total:      o.Total,
		Currency:   o.Currency,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaymentFailedEvent is emitted when the gateway reports a failed or expired payment.
type OrderPaymentFailedEvent struct {
	OrderID    string
	UserID     string
	Reason     string
	OccurredAt time.Time
}

func (OrderPaymentFailedEvent) EventName() string  { return "order.payment_failed" }
func (e OrderPaymentFailedEvent) OrderKey() string { return e.OrderID }

func NewOrderPaymentFailedEvent(o *Order, reason string) OrderPaymentFailedEvent {
	return OrderPaymentFailedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted when a customer or an admin cancels an order.
type OrderCancelledEvent struct {
	OrderID    string
	UserID     string
	Reason     string
	OccurredAt time.Time
}

func (OrderCancelledEvent) EventName() string  { return "order.cancelled" }
func (e OrderCancelledEvent) OrderKey() string { return e.OrderID }

func NewOrderCancelledEvent(o *Order, reason string) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
