package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
)

type catalogStore struct {
	mu         sync.RWMutex
	products   map[string]*domain.Product
	categories map[string]*domain.Category
}

type ProductRepository struct{ s *catalogStore }

type CategoryRepository struct{ s *catalogStore }

// NewCatalogRepositories returns product and category repositories over one
// store so category deletion can see the products still attached to it.
func NewCatalogRepositories() (*ProductRepository, *CategoryRepository) {
	s := &catalogStore{
		products:   make(map[string]*domain.Product),
		categories: make(map[string]*domain.Category),
	}
	return &ProductRepository{s: s}, &CategoryRepository{s: s}
}

func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.CategoryID != "" {
		if _, ok := r.s.categories[p.CategoryID]; !ok {
			return domain.ErrCategoryNotFound
		}
	}
	r.s.products[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out[id] = p.Clone()
		}
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.CategoryID != "" {
		if _, ok := r.s.categories[p.CategoryID]; !ok {
			return domain.ErrCategoryNotFound
		}
	}
	p.Stock = stored.Stock
	r.s.products[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

// List filters products and returns them ordered by name.
func (r *ProductRepository) List(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error) {
	_ = ctx
	f = f.Normalize()
	q := strings.ToLower(strings.TrimSpace(f.Query))

	r.s.mu.RLock()
	matched := make([]*domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if f.ActiveOnly && !p.Active {
			continue
		}
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		matched = append(matched, p.Clone())
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name == matched[j].Name {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Name < matched[j].Name
	})
	return &domain.ProductPage{
		Items: paginate(matched, f.Page, f.Limit),
		Total: len(matched),
		Page:  f.Page,
		Limit: f.Limit,
	}, nil
}

// LowStock returns active products at or below threshold, lowest stock first.
func (r *ProductRepository) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	_ = ctx
	r.s.mu.RLock()
	out := make([]*domain.Product, 0)
	for _, p := range r.s.products {
		if p.Active && p.Stock <= threshold {
			out = append(out, p.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock == out[j].Stock {
			return out[i].Name < out[j].Name
		}
		return out[i].Stock < out[j].Stock
	})
	return out, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.products), nil
}

// Reserve checks every line before mutating anything, all under one lock.
func (r *ProductRepository) Reserve(ctx context.Context, lines []domain.StockLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lines = domain.MergeLines(lines)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, l := range lines {
		if l.Quantity <= 0 {
			return &domain.ReservationError{ProductID: l.ProductID, Err: domain.ErrInvalidQuantity}
		}
		p, ok := r.s.products[l.ProductID]
		if !ok {
			return &domain.ReservationError{ProductID: l.ProductID, Err: domain.ErrNotFound}
		}
		if !p.Active {
			return &domain.ReservationError{ProductID: l.ProductID, Err: domain.ErrInactive}
		}
		if p.Stock < l.Quantity {
			return &domain.ReservationError{ProductID: l.ProductID, Err: domain.ErrInsufficientStock}
		}
	}
	for _, l := range lines {
		_ = r.s.products[l.ProductID].Deduct(l.Quantity)
	}
	return nil
}

// Release returns stock for every line; products deleted since reservation are skipped.
func (r *ProductRepository) Release(ctx context.Context, lines []domain.StockLine) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, l := range domain.MergeLines(lines) {
		if p, ok := r.s.products[l.ProductID]; ok && l.Quantity > 0 {
			_ = p.Restock(l.Quantity)
		}
	}
	return nil
}

func (r *ProductRepository) AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := p.Adjust(delta); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (r *CategoryRepository) Insert(ctx context.Context, c *domain.Category) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.slugTaken(c.Slug, c.ID) {
		return domain.ErrSlugTaken
	}
	r.s.categories[c.ID] = c.Clone()
	return nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (*domain.Category, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	return c.Clone(), nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[c.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	if r.slugTaken(c.Slug, c.ID) {
		return domain.ErrSlugTaken
	}
	r.s.categories[c.ID] = c.Clone()
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	for _, p := range r.s.products {
		if p.CategoryID == id {
			return domain.ErrCategoryInUse
		}
	}
	delete(r.s.categories, id)
	return nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	_ = ctx
	r.s.mu.RLock()
	out := make([]*domain.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c.Clone())
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// slugTaken must be called with the store lock held.
func (r *CategoryRepository) slugTaken(slug, exceptID string) bool {
	for id, c := range r.s.categories {
		if id != exceptID && c.Slug == slug {
			return true
		}
	}
	return false
}
