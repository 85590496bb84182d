package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
)

type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	txRefs   map[string]string
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments: make(map[string]*domain.Payment),
		txRefs:   make(map[string]string),
	}
}

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.txRefs[p.TxRef]; exists {
		return domain.ErrConflict
	}
	r.payments[p.ID] = p.Clone()
	r.txRefs[p.TxRef] = p.ID
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.payments[p.ID] = p.Clone()
	return nil
}

func (r *PaymentRepository) FindByTxRef(ctx context.Context, txRef string) (*domain.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[r.txRefs[txRef]]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PaymentRepository) FindPendingByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var newest *domain.Payment
	for _, p := range r.payments {
		if p.OrderID != orderID || p.Status != domain.StatusPending {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, domain.ErrNotFound
	}
	return newest.Clone(), nil
}

func (r *PaymentRepository) ListPending(ctx context.Context, q domain.PendingQuery) ([]*domain.Payment, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]*domain.Payment, 0)
	for _, p := range r.payments {
		if q.Matches(p) {
			out = append(out, p.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ni := out[i].NextCheckAt(q.BaseBackoff, q.MaxBackoff)
		nj := out[j].NextCheckAt(q.BaseBackoff, q.MaxBackoff)
		if ni.Equal(nj) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return ni.Before(nj)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *PaymentRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Payment, int, error) {
	_ = ctx
	f = f.Normalize()

	r.mu.RLock()
	matched := make([]*domain.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		if f.Status == "" || p.Status == f.Status {
			matched = append(matched, p.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, f.Page, f.Limit), len(matched), nil
}
