package order

import (
	"context"
	"time"
)

type Filter struct {
	UserID string
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

type DailySales struct {
	Day     time.Time
	Orders  int
	Revenue int64
}

type Summary struct {
	CountsByStatus map[Status]int
	Revenue        int64
	Daily          []DailySales
}

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// Update writes order only if the stored row is still at order.Version and
	// bumps the version on success. A stale order yields ErrConflict.
	Update(ctx context.Context, order *Order) error
	FindByIdempotency(ctx context.Context, userID, key string) (*Order, error)
	FindByTxRef(ctx context.Context, txRef string) (*Order, error)
	List(ctx context.Context, f Filter) ([]*Order, int, error)
	// Summary aggregates all orders; Daily covers revenue orders created at or after since.
	Summary(ctx context.Context, since time.Time) (*Summary, error)
}
