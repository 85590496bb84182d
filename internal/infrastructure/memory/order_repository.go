package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
)

type OrderRepository struct {
	mu          sync.RWMutex
	orders      map[string]*domain.Order
	idempotency map[string]string
	txRefs      map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:      make(map[string]*domain.Order),
		idempotency: make(map[string]string),
		txRefs:      make(map[string]string),
	}
}

func idempotencyKey(userID, key string) string {
	return userID + "\x00" + key
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.txRefs[order.TxRef]; exists && order.TxRef != "" {
		return domain.ErrConflict
	}
	if key := order.IdempotencyKey; key != "" {
		if _, exists := r.idempotency[idempotencyKey(order.UserID, key)]; exists {
			return domain.ErrConflict
		}
	}

	r.orders[order.ID] = order.Clone()
	if order.TxRef != "" {
		r.txRefs[order.TxRef] = order.ID
	}
	if key := order.IdempotencyKey; key != "" {
		r.idempotency[idempotencyKey(order.UserID, key)] = order.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if stored.Version != order.Version {
		return domain.ErrConflict
	}
	order.Version++
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, userID, key string) (*domain.Order, error) {
	_ = ctx
	if key == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.idempotency[idempotencyKey(userID, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, found := r.orders[orderID]
	if !found {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) FindByTxRef(ctx context.Context, txRef string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[r.txRefs[txRef]]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

// List returns matching orders newest first.
func (r *OrderRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Order, int, error) {
	_ = ctx
	f = f.Normalize()

	r.mu.RLock()
	matched := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, o.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, f.Page, f.Limit), len(matched), nil
}

func (r *OrderRepository) Summary(ctx context.Context, since time.Time) (*domain.Summary, error) {
	_ = ctx
	since = since.UTC().Truncate(24 * time.Hour)

	r.mu.RLock()
	defer r.mu.RUnlock()

	sum := &domain.Summary{CountsByStatus: make(map[domain.Status]int)}
	daily := make(map[time.Time]*domain.DailySales)
	for _, o := range r.orders {
		sum.CountsByStatus[o.Status]++
		if !o.Status.Revenue() {
			continue
		}
		sum.Revenue += o.Total
		if o.CreatedAt.Before(since) {
			continue
		}
		day := o.CreatedAt.UTC().Truncate(24 * time.Hour)
		d, ok := daily[day]
		if !ok {
			d = &domain.DailySales{Day: day}
			daily[day] = d
		}
		d.Orders++
		d.Revenue += o.Total
	}
	for _, d := range daily {
		sum.Daily = append(sum.Daily, *d)
	}
	sort.Slice(sum.Daily, func(i, j int) bool { return sum.Daily[i].Day.Before(sum.Daily[j].Day) })
	return sum, nil
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
