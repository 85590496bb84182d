package postgres

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
)

type PaymentRepository struct{ db *sql.DB }

func NewPaymentRepository(db *sql.DB) *PaymentRepository { return &PaymentRepository{db: db} }

const paymentColumns = `id, order_id, user_id, tx_ref, amount, currency, status, checkout_url, gateway_reference,
	failure_reason, attempts, last_checked_at, created_at, updated_at`

func scanPayment(row scanner) (*domain.Payment, error) {
	var p domain.Payment
	var status string
	var lastChecked sql.NullTime
	if err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.TxRef, &p.Amount, &p.Currency, &status, &p.CheckoutURL,
		&p.GatewayReference, &p.FailureReason, &p.Attempts, &lastChecked, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Status = domain.Status(status)
	if lastChecked.Valid {
		p.LastCheckedAt = utc(lastChecked.Time)
	}
	p.CreatedAt, p.UpdatedAt = utc(p.CreatedAt), utc(p.UpdatedAt)
	return &p, nil
}

func scanPayments(rows *sql.Rows) ([]*domain.Payment, error) {
	defer rows.Close()
	out := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments(`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, p.ID, p.OrderID, p.UserID, p.TxRef, p.Amount, p.Currency, string(p.Status), p.CheckoutURL, p.GatewayReference,
		p.FailureReason, p.Attempts, nullTime(p.LastCheckedAt), p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		   SET status=$2, checkout_url=$3, gateway_reference=$4, failure_reason=$5,
		       attempts=$6, last_checked_at=$7, updated_at=$8
		 WHERE id=$1
	`, p.ID, string(p.Status), p.CheckoutURL, p.GatewayReference, p.FailureReason,
		p.Attempts, nullTime(p.LastCheckedAt), p.UpdatedAt)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) FindByTxRef(ctx context.Context, txRef string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE tx_ref=$1`, txRef))
}

func (r *PaymentRepository) FindPendingByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		 WHERE order_id=$1 AND status='pending'
		 ORDER BY created_at DESC
		 LIMIT 1
	`, orderID))
}

// nextCheckAt mirrors Payment.NextCheckAt; $3 and $4 are the base and max backoff in seconds.
const nextCheckAt = `CASE WHEN last_checked_at IS NULL THEN created_at
	ELSE last_checked_at + make_interval(secs => CASE WHEN $4::float8 > 0
		THEN LEAST($3::float8 * power(2::float8, LEAST(attempts, 62)), $4::float8)
		ELSE $3::float8 END) END`

func (r *PaymentRepository) ListPending(ctx context.Context, q domain.PendingQuery) ([]*domain.Payment, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM (
			SELECT `+paymentColumns+`, `+nextCheckAt+` AS next_check_at
			  FROM payments
			 WHERE status='pending' AND created_at <= $1
		) due
		 WHERE next_check_at <= $2
		 ORDER BY next_check_at, created_at
		 LIMIT $5
	`, q.CreatedBefore, q.DueAt, q.BaseBackoff.Seconds(), q.MaxBackoff.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (r *PaymentRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Payment, int, error) {
	f = f.Normalize()
	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM payments WHERE $1 = '' OR status = $1
	`, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		 WHERE $1 = '' OR status = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3
	`, string(f.Status), f.Limit, (f.Page-1)*f.Limit)
	if err != nil {
		return nil, 0, err
	}
	out, err := scanPayments(rows)
	return out, total, err
}
