package payment

import (
	"context"
	"time"
)

type Filter struct {
	Status Status
	Page   int
	Limit  int
}

func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

// PendingQuery selects pending payments that are due for another gateway check.
type PendingQuery struct {
	CreatedBefore time.Time
	DueAt         time.Time
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	Limit         int
}

// Matches reports whether p is pending, old enough and past its next check time.
func (q PendingQuery) Matches(p *Payment) bool {
	if p.Status != StatusPending || p.CreatedAt.After(q.CreatedBefore) {
		return false
	}
	return !p.NextCheckAt(q.BaseBackoff, q.MaxBackoff).After(q.DueAt)
}

type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	FindByTxRef(ctx context.Context, txRef string) (*Payment, error)
	// FindPendingByOrder returns the newest pending payment of an order.
	FindPendingByOrder(ctx context.Context, orderID string) (*Payment, error)
	// ListPending returns payments matching q, earliest next check first.
	ListPending(ctx context.Context, q PendingQuery) ([]*Payment, error)
	List(ctx context.Context, f Filter) ([]*Payment, int, error)
}
