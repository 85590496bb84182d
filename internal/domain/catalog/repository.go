package catalog

import "context"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ProductFilter struct {
	CategoryID string
	Query      string
	ActiveOnly bool
	Page       int
	Limit      int
}

// Normalize clamps paging to sane bounds.
func (f ProductFilter) Normalize() ProductFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type ProductPage struct {
	Items []*Product
	Total int
	Page  int
	Limit int
}

type ProductRepository interface {
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Product, error)
	// Update writes everything but Stock, then loads the stored stock into p.
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProductFilter) (*ProductPage, error)
	LowStock(ctx context.Context, threshold int) ([]*Product, error)
	Count(ctx context.Context) (int, error)
	// Reserve deducts every line or none of them.
	Reserve(ctx context.Context, lines []StockLine) error
	Release(ctx context.Context, lines []StockLine) error
	AdjustStock(ctx context.Context, productID string, delta int) (*Product, error)
}

type CategoryRepository interface {
	Insert(ctx context.Context, c *Category) error
	Get(ctx context.Context, id string) (*Category, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Category, error)
}
