package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
)

type OrderRepository struct{ db *sql.DB }

func NewOrderRepository(db *sql.DB) *OrderRepository { return &OrderRepository{db: db} }

const orderColumns = `id, user_id, items, total, currency, status, tx_ref, idempotency_key,
	failure_reason, shipping_address, phone, created_at, updated_at, version`

type itemRow struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

func encodeItems(items []domain.Item) ([]byte, error) {
	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, itemRow(it))
	}
	return json.Marshal(rows)
}

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	var items []byte
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &items, &o.Total, &o.Currency, &status, &o.TxRef, &o.IdempotencyKey,
		&o.FailureReason, &o.ShippingAddress, &o.Phone, &o.CreatedAt, &o.UpdatedAt, &o.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var rows []itemRow
	if err := json.Unmarshal(items, &rows); err != nil {
		return nil, fmt.Errorf("order %s: decode items: %w", o.ID, err)
	}
	o.Items = make([]domain.Item, 0, len(rows))
	for _, it := range rows {
		o.Items = append(o.Items, domain.Item(it))
	}
	o.Status = domain.Status(status)
	o.CreatedAt, o.UpdatedAt = utc(o.CreatedAt), utc(o.UpdatedAt)
	return &o, nil
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	items, err := encodeItems(o.Items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders(`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, o.ID, o.UserID, items, o.Total, o.Currency, string(o.Status), o.TxRef, o.IdempotencyKey,
		o.FailureReason, o.ShippingAddress, o.Phone, o.CreatedAt, o.UpdatedAt, o.Version)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
}

// Update persists the mutable parts of an order when the row is still at o.Version.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status=$2, failure_reason=$3, shipping_address=$4, phone=$5, updated_at=$6,
		       version=version+1
		 WHERE id=$1 AND version=$7
	`, o.ID, string(o.Status), o.FailureReason, o.ShippingAddress, o.Phone, o.UpdatedAt, o.Version)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, o.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	o.Version++
	return nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, userID, key string) (*domain.Order, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	return scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id=$1 AND idempotency_key=$2
	`, userID, key))
}

func (r *OrderRepository) FindByTxRef(ctx context.Context, txRef string) (*domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE tx_ref=$1`, txRef))
}

// List returns matching orders newest first.
func (r *OrderRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Order, int, error) {
	f = f.Normalize()
	where := []string{"TRUE"}
	args := []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM orders WHERE %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, orderColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]*domain.Order, 0, f.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *OrderRepository) Summary(ctx context.Context, since time.Time) (*domain.Summary, error) {
	since = since.UTC().Truncate(24 * time.Hour)
	revenue := revenueStatuses()
	sum := &domain.Summary{CountsByStatus: make(map[domain.Status]int)}

	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		sum.CountsByStatus[domain.Status(status)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(sum(total), 0) FROM orders WHERE status = ANY($1)
	`, revenue).Scan(&sum.Revenue); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, count(*), sum(total)
		  FROM orders
		 WHERE status = ANY($1) AND created_at >= $2
		 GROUP BY day
		 ORDER BY day
	`, revenue, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d domain.DailySales
		if err := rows.Scan(&d.Day, &d.Orders, &d.Revenue); err != nil {
			return nil, err
		}
		// the column is a timestamp without zone holding a UTC wall clock
		d.Day = time.Date(d.Day.Year(), d.Day.Month(), d.Day.Day(), 0, 0, 0, 0, time.UTC)
		sum.Daily = append(sum.Daily, d)
	}
	return sum, rows.Err()
}

func revenueStatuses() any {
	var out []string
	for _, st := range domain.Statuses {
		if st.Revenue() {
			out = append(out, string(st))
		}
	}
	return pq.Array(out)
}
