package order

import (
	"errors"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: conflict")
	ErrEmpty                  = errors.New("order: at least one item is required")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount          = errors.New("order: amount must be zero or greater")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrNotCancellable         = errors.New("order: order can no longer be cancelled")
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusPaid          Status = "paid"
	StatusPaymentFailed Status = "payment_failed"
	StatusShipped       Status = "shipped"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusPaid, StatusPaymentFailed, StatusShipped, StatusDelivered, StatusCancelled}

func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == strings.ToLower(strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// Revenue reports whether money for an order in this status has been collected.
func (s Status) Revenue() bool {
	return s == StatusPaid || s == StatusShipped || s == StatusDelivered
}

// HoldsStock reports whether an order in this status still has stock reserved.
func (s Status) HoldsStock() bool {
	return s == StatusPending || s.Revenue()
}

type Item struct {
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
	Subtotal  int64
}

type Order struct {
	ID              string
	UserID          string
	Items           []Item
	Total           int64
	Currency        string
	Status          Status
	TxRef           string
	IdempotencyKey  string
	FailureReason   string
	ShippingAddress string
	Phone           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	// Version is the row version the order was read at.
	Version int64
}

func New(id, userID, txRef, idempotencyKey, currency string, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	var total int64
	lines := make([]Item, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.UnitPrice < 0 {
			return nil, ErrInvalidAmount
		}
		it.Subtotal = it.UnitPrice * int64(it.Quantity)
		total += it.Subtotal
		lines[i] = it
	}

	now := time.Now().UTC()
	return &Order{
		ID:             id,
		UserID:         userID,
		Items:          lines,
		Total:          total,
		Currency:       currency,
		Status:         StatusPending,
		TxRef:          txRef,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (o *Order) StockLines() []catalog.StockLine {
	out := make([]catalog.StockLine, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, catalog.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func (o *Order) CanProcessPayment() bool {
	return o.Status == StatusPending
}

func (o *Order) PaymentSucceeded() error {
	return o.apply(func(s OrderState) (OrderState, error) { return s.OnPaymentSucceeded(o) })
}

func (o *Order) PaymentFailed(reason string) error {
	return o.apply(func(s OrderState) (OrderState, error) { return s.OnPaymentFailed(o, reason) })
}

func (o *Order) Cancel(reason string) error {
	return o.apply(func(s OrderState) (OrderState, error) { return s.OnCancelled(o, reason) })
}

func (o *Order) Ship() error {
	return o.apply(func(s OrderState) (OrderState, error) { return s.OnShipped(o) })
}

func (o *Order) Deliver() error {
	return o.apply(func(s OrderState) (OrderState, error) { return s.OnDelivered(o) })
}

func (o *Order) apply(transition func(OrderState) (OrderState, error)) error {
	current, err := stateFor(o.Status)
	if err != nil {
		return err
	}
	next, err := transition(current)
	if err != nil {
		return err
	}
	if next.Status() != o.Status {
		o.Status = next.Status()
		o.touch()
	}
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	return &c
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
