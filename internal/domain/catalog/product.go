package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrInvalidPrice      = errors.New("catalog: price must be greater than zero")
	ErrInvalidStock      = errors.New("catalog: stock must be zero or greater")
	ErrInvalidName       = errors.New("catalog: name is required")
	ErrInactive          = errors.New("catalog: product is not available")
)

type Product struct {
	ID          string
	CategoryID  string
	Name        string
	Description string
	Price       int64 // minor units
	Stock       int
	ImageURL    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewProduct(id, categoryID, name, description string, price int64, stock int, imageURL string) (*Product, error) {
	p := &Product{
		ID:          id,
		CategoryID:  categoryID,
		Name:        strings.TrimSpace(name),
		Description: description,
		Price:       price,
		Stock:       stock,
		ImageURL:    imageURL,
		Active:      true,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return p, nil
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrInvalidName
	}
	if p.Price <= 0 {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

func (p *Product) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.Touch()
	return nil
}

func (p *Product) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	p.Touch()
	return nil
}

// Adjust applies a signed stock correction; stock never drops below zero.
func (p *Product) Adjust(delta int) error {
	if p.Stock+delta < 0 {
		return ErrInsufficientStock
	}
	p.Stock += delta
	p.Touch()
	return nil
}

func (p *Product) Touch() {
	p.UpdatedAt = time.Now().UTC()
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// StockLine is one product/quantity pair of an all-or-nothing reservation.
type StockLine struct {
	ProductID string
	Quantity  int
}

// MergeLines folds duplicate product lines together, keeping first-seen order.
func MergeLines(lines []StockLine) []StockLine {
	idx := make(map[string]int, len(lines))
	out := make([]StockLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// ReservationError names the product that failed an all-or-nothing reservation.
type ReservationError struct {
	ProductID string
	Err       error
}

func (e *ReservationError) Error() string {
	return "catalog: reserve " + e.ProductID + ": " + e.Err.Error()
}

func (e *ReservationError) Unwrap() error { return e.Err }
