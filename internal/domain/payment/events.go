package payment

import "time"

type PaymentSucceededEvent struct {
	PaymentID  string
	OrderID    string
	TxRef      string
	Amount     int64
	OccurredAt time.Time
}

func (PaymentSucceededEvent) EventName() string  { return "payment.succeeded" }
func (e PaymentSucceededEvent) OrderKey() string { return e.OrderID }

func NewPaymentSucceededEvent(p *Payment) PaymentSucceededEvent {
	return PaymentSucceededEvent{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		TxRef:      p.TxRef,
		Amount:     p.Amount,
		OccurredAt: time.Now().UTC(),
	}
}

type PaymentFailedEvent struct {
	PaymentID  string
	OrderID    string
	TxRef      string
	Reason     string
	OccurredAt time.Time
}

func (PaymentFailedEvent) EventName() string  { return "payment.failed" }
func (e PaymentFailedEvent) OrderKey() string { return e.OrderID }

func NewPaymentFailedEvent(p *Payment) PaymentFailedEvent {
	return PaymentFailedEvent{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		TxRef:      p.TxRef,
		Reason:     p.FailureReason,
		OccurredAt: time.Now().UTC(),
	}
}
