package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("payment not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (user_id, product_id, amount_cny, pay_channel, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING payment_id, status, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.UserID, p.ProductID, p.AmountCNY, p.PayChannel,
	).Scan(&p.PaymentID, &p.Status, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, paymentID int64) (*Payment, error) {
	var p Payment
	query := `SELECT * FROM payments WHERE payment_id = $1`
	err := r.db.GetContext(ctx, &p, query, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Payment, error) {
	payments := []Payment{}
	query := `
		SELECT * FROM payments
		WHERE user_id = $1 AND ($2 = 0 OR payment_id < $2)
		ORDER BY payment_id DESC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &payments, query, userID, cursor, limit); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *Repository) SetPayParams(ctx context.Context, paymentID int64, payParams string) error {
	query := `UPDATE payments SET pay_params = $1 WHERE payment_id = $2`
	if _, err := r.db.ExecContext(ctx, query, payParams, paymentID); err != nil {
		return fmt.Errorf("failed to set pay params: %w", err)
	}
	return nil
}

// MarkPaid settles a pending payment. The status guard makes duplicate
// callbacks for the same payment resolve to exactly one winner.
func (r *Repository) MarkPaid(ctx context.Context, paymentID int64) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'success', paid_at = NOW()
		WHERE payment_id = $1 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, paymentID)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment paid: %w", err)
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}

func (r *Repository) MarkFailed(ctx context.Context, paymentID int64) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed'
		WHERE payment_id = $1 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, paymentID)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}
