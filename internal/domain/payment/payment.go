package payment

import (
	"errors"
	"time"
)

var (
	ErrNotFound               = errors.New("payment: not found")
	ErrConflict               = errors.New("payment: conflict")
	ErrInvalidAmount          = errors.New("payment: amount must be greater than zero")
	ErrInvalidStateTransition = errors.New("payment: invalid state transition")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Settled() bool { return s == StatusSuccess || s == StatusFailed }

// Failure reasons recorded on payments and orders.
const (
	ReasonDeclined       = "payment_declined"
	ReasonAmountMismatch = "amount_mismatch"
	ReasonExpired        = "expired"
	ReasonGatewayError   = "gateway_error"
)

type Payment struct {
	ID               string
	OrderID          string
	UserID           string
	TxRef            string
	Amount           int64
	Currency         string
	Status           Status
	CheckoutURL      string
	GatewayReference string
	FailureReason    string
	Attempts         int
	LastCheckedAt    time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func New(id, orderID, userID, txRef string, amount int64, currency string) (*Payment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &Payment{
		ID:        id,
		OrderID:   orderID,
		UserID:    userID,
		TxRef:     txRef,
		Amount:    amount,
		Currency:  currency,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Succeed settles the payment as successful. A failed payment may still turn
// successful when the gateway confirms late. changed is false on a repeat.
func (p *Payment) Succeed(reference string) (changed bool, err error) {
	switch p.Status {
	case StatusSuccess:
		return false, nil
	case StatusPending, StatusFailed:
		p.Status = StatusSuccess
		p.FailureReason = ""
		if reference != "" {
			p.GatewayReference = reference
		}
		p.touch()
		return true, nil
	default:
		return false, ErrInvalidStateTransition
	}
}

func (p *Payment) Fail(reason string) (changed bool, err error) {
	switch p.Status {
	case StatusFailed:
		return false, nil
	case StatusPending:
		p.Status = StatusFailed
		p.FailureReason = reason
		p.touch()
		return true, nil
	default:
		return false, ErrInvalidStateTransition
	}
}

// RecordCheck counts one verification attempt against the gateway.
func (p *Payment) RecordCheck(at time.Time) {
	p.Attempts++
	p.LastCheckedAt = at.UTC()
	p.UpdatedAt = at.UTC()
}

// NextCheckAt is when the reconciler should verify the payment again:
// base*2^attempts after the last check, capped at max.
func (p *Payment) NextCheckAt(base, max time.Duration) time.Time {
	if p.LastCheckedAt.IsZero() {
		return p.CreatedAt
	}
	delay := base
	for i := 0; i < p.Attempts && delay < max; i++ {
		delay *= 2
	}
	if max > 0 && delay > max {
		delay = max
	}
	return p.LastCheckedAt.Add(delay)
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (p *Payment) touch() {
	p.UpdatedAt = time.Now().UTC()
}
