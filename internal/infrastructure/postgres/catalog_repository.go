package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
)

type ProductRepository struct{ db *sql.DB }

func NewProductRepository(db *sql.DB) *ProductRepository { return &ProductRepository{db: db} }

const productColumns = `id, COALESCE(category_id, ''), name, description, price, stock, image_url, active, created_at, updated_at`

func scanProduct(row scanner) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = utc(p.CreatedAt), utc(p.UpdatedAt)
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]*domain.Product, error) {
	defer rows.Close()
	out := make([]*domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products(id, category_id, name, description, price, stock, image_url, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, p.ID, nullString(p.CategoryID), p.Name, p.Description, p.Price, p.Stock, p.ImageURL, p.Active, p.CreatedAt, p.UpdatedAt)
	return mapProductErr(err)
}

func mapProductErr(err error) error {
	switch {
	case err == nil:
		return nil
	case isForeignKeyViolation(err):
		return domain.ErrCategoryNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("catalog: product exists: %w", err)
	default:
		return err
	}
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r *ProductRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	list, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		   SET category_id=$2, name=$3, description=$4, price=$5, image_url=$6, active=$7, updated_at=$8
		 WHERE id=$1
		RETURNING stock
	`, p.ID, nullString(p.CategoryID), p.Name, p.Description, p.Price, p.ImageURL, p.Active, p.UpdatedAt).Scan(&p.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return mapProductErr(err)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List filters products and returns them ordered by name.
func (r *ProductRepository) List(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error) {
	f = f.Normalize()
	where := []string{"TRUE"}
	args := []any{}
	if f.ActiveOnly {
		where = append(where, "active")
	}
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%[1]d OR description ILIKE $%[1]d)", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, err
	}
	args = append(args, f.Limit, f.Offset())
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM products WHERE %s
		 ORDER BY name, id
		 LIMIT $%d OFFSET $%d`, productColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	items, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	return &domain.ProductPage{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// LowStock returns active products at or below threshold, lowest stock first.
func (r *ProductRepository) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products
		 WHERE active AND stock <= $1
		 ORDER BY stock, name`, threshold)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM products`).Scan(&n)
	return n, err
}

// Reserve deducts all lines in one transaction with conditional updates, so
// concurrent checkouts can never oversell. Lines are applied in product id
// order to keep lock acquisition consistent.
func (r *ProductRepository) Reserve(ctx context.Context, lines []domain.StockLine) error {
	lines = domain.MergeLines(lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SET LOCAL statement_timeout = '`+statementTimeout+`'`); err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, l := range lines {
			if l.Quantity <= 0 {
				return &domain.ReservationError{ProductID: l.ProductID, Err: domain.ErrInvalidQuantity}
			}
			res, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock - $2, updated_at = $3
				 WHERE id = $1 AND active AND stock >= $2
			`, l.ProductID, l.Quantity, now)
			if err != nil {
				return err
			}
			if affected(res) == 1 {
				continue
			}
			return &domain.ReservationError{ProductID: l.ProductID, Err: reservationCause(ctx, tx, l.ProductID)}
		}
		return nil
	})
}

func reservationCause(ctx context.Context, tx *sql.Tx, productID string) error {
	var active bool
	err := tx.QueryRowContext(ctx, `SELECT active FROM products WHERE id=$1`, productID).Scan(&active)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case err != nil:
		return err
	case !active:
		return domain.ErrInactive
	default:
		return domain.ErrInsufficientStock
	}
}

// Release returns stock for every line; products deleted since reservation are skipped.
func (r *ProductRepository) Release(ctx context.Context, lines []domain.StockLine) error {
	lines = domain.MergeLines(lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, l := range lines {
			if l.Quantity <= 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock + $2, updated_at = $3 WHERE id = $1
			`, l.ProductID, l.Quantity, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ProductRepository) AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = $3
		 WHERE id = $1 AND stock + $2 >= 0
		RETURNING `+productColumns, productID, delta, time.Now().UTC()))
	if !errors.Is(err, domain.ErrNotFound) {
		return p, err
	}
	if _, gerr := r.Get(ctx, productID); gerr != nil {
		return nil, gerr
	}
	return nil, domain.ErrInsufficientStock
}

type CategoryRepository struct{ db *sql.DB }

func NewCategoryRepository(db *sql.DB) *CategoryRepository { return &CategoryRepository{db: db} }

const categoryColumns = `id, name, slug, description, created_at, updated_at`

func scanCategory(row scanner) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	c.CreatedAt, c.UpdatedAt = utc(c.CreatedAt), utc(c.UpdatedAt)
	return &c, nil
}

func (r *CategoryRepository) Insert(ctx context.Context, c *domain.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories(`+categoryColumns+`) VALUES ($1,$2,$3,$4,$5,$6)
	`, c.ID, c.Name, c.Slug, c.Description, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrSlugTaken
	}
	return err
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (*domain.Category, error) {
	return scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id=$1`, id))
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name=$2, slug=$3, description=$4, updated_at=$5 WHERE id=$1
	`, c.ID, c.Name, c.Slug, c.Description, c.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrSlugTaken
	}
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if isForeignKeyViolation(err) {
		return domain.ErrCategoryInUse
	}
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
