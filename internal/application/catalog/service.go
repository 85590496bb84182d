package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const catalogService = "catalog-service"

type IDGenerator interface {
	NewID() string
}

type Service struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	ids        IDGenerator
	ins        observability.Instruments
}

func NewService(products domain.ProductRepository, categories domain.CategoryRepository, ids IDGenerator, tel observability.Observability) *Service {
	return &Service{
		products:   products,
		categories: categories,
		ids:        ids,
		ins:        observability.Resolve(tel, catalogService),
	}
}

type CategoryInput struct {
	Name        string
	Slug        string
	Description string
}

func (s *Service) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	out, err := s.categories.List(ctx)
	return out, wrapRepo(err)
}

func (s *Service) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.categories.Get(ctx, id)
	return c, wrapRepo(err)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (_ *domain.Category, err error) {
	ctx, call := application.Begin(ctx, s.ins, "catalog.category.create", "CreateCategory")
	defer func() { call.End(err) }()

	c, err := domain.NewCategory(s.ids.NewID(), in.Name, in.Slug, in.Description)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := s.categories.Insert(ctx, c); err != nil {
		call.Fail("CATEGORY_INSERT_FAILED")
		return nil, wrapRepo(err)
	}
	call.With(observability.F("category_id", c.ID))
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (_ *domain.Category, err error) {
	ctx, call := application.Begin(ctx, s.ins, "catalog.category.update", "UpdateCategory",
		attribute.String("category.id", id))
	defer func() { call.End(err) }()

	c, err := s.categories.Get(ctx, id)
	if err != nil {
		call.Fail("CATEGORY_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	next, err := domain.NewCategory(c.ID, in.Name, in.Slug, in.Description)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	next.CreatedAt = c.CreatedAt
	if err := s.categories.Update(ctx, next); err != nil {
		call.Fail("CATEGORY_UPDATE_FAILED")
		return nil, wrapRepo(err)
	}
	return next, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) (err error) {
	ctx, call := application.Begin(ctx, s.ins, "catalog.category.delete", "DeleteCategory",
		attribute.String("category.id", id))
	defer func() { call.End(err) }()

	if err := s.categories.Delete(ctx, id); err != nil {
		call.Fail("CATEGORY_DELETE_FAILED")
		return wrapRepo(err)
	}
	return nil
}

// ProductInput carries a full product definition; Active nil means unchanged
// on update and true on create.
type ProductInput struct {
	CategoryID  string
	Name        string
	Description string
	Price       int64
	Stock       int
	ImageURL    string
	Active      *bool
}

func (s *Service) ListProducts(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error) {
	page, err := s.products.List(ctx, f.Normalize())
	return page, wrapRepo(err)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.Get(ctx, id)
	return p, wrapRepo(err)
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (_ *domain.Product, err error) {
	ctx, call := application.Begin(ctx, s.ins, "catalog.product.create", "CreateProduct")
	defer func() { call.End(err) }()

	p, err := domain.NewProduct(s.ids.NewID(), strings.TrimSpace(in.CategoryID), in.Name, in.Description, in.Price, in.Stock, in.ImageURL)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := s.products.Insert(ctx, p); err != nil {
		call.Fail("PRODUCT_INSERT_FAILED")
		return nil, wrapRepo(err)
	}
	call.With(observability.F("product_id", p.ID))
	return p, nil
}

// UpdateProduct replaces the product definition. Stock changes go through
// AdjustStock so concurrent checkouts are not overwritten.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (_ *domain.Product, err error) {
	ctx, call := application.Begin(ctx, s.ins, "catalog.product.update", "UpdateProduct",
		attribute.String("product.id", id))
	defer func() { call.End(err) }()

	p, err := s.products.Get(ctx, id)
	if err != nil {
		call.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	p.CategoryID = strings.TrimSpace(in.CategoryID)
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.ImageURL = in.ImageURL
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := p.Validate(); err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	p.Touch()
	if err := s.products.Update(ctx, p); err != nil {
		call.Fail("PRODUCT_UPDATE_FAILED")
		return nil, wrapRepo(err)
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) (err error) {
	ctx, call := application.Begin(ctx, s.ins, "catalog.product.delete", "DeleteProduct",
		attribute.String("product.id", id))
	defer func() { call.End(err) }()

	if err := s.products.Delete(ctx, id); err != nil {
		call.Fail("PRODUCT_DELETE_FAILED")
		return wrapRepo(err)
	}
	return nil
}

func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (_ *domain.Product, err error) {
	ctx, call := application.Begin(ctx, s.ins, "catalog.product.adjust_stock", "AdjustStock",
		attribute.String("product.id", id),
		attribute.Int("stock.delta", delta))
	defer func() { call.End(err) }()

	if delta == 0 {
		call.Fail("DELTA_ZERO")
		return nil, domain.ErrInvalidQuantity
	}
	p, err := s.products.AdjustStock(ctx, id, delta)
	if err != nil {
		call.Fail("STOCK_ADJUST_FAILED")
		return nil, wrapRepo(err)
	}
	call.With(observability.F("stock", p.Stock))
	return p, nil
}

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		domain.ErrNotFound, domain.ErrCategoryNotFound, domain.ErrCategoryInUse,
		domain.ErrSlugTaken, domain.ErrInsufficientStock, domain.ErrInvalidQuantity,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("catalog: repository: %w", err)
}
