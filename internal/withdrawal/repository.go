package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound       = errors.New("withdrawal not found")
	ErrNotProcessable = errors.New("withdrawal is not in applied state")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, w *Withdrawal) error {
	query := `
		INSERT INTO withdrawals (user_id, amount_cny, amount_coins, method, account_info, status)
		VALUES ($1, $2, $3, $4, $5, 'applied')
		RETURNING withdrawal_id, status, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		w.UserID, w.AmountCNY, w.AmountCoins, w.Method, w.AccountInfo,
	).Scan(&w.WithdrawalID, &w.Status, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, withdrawalID int64) (*Withdrawal, error) {
	var w Withdrawal
	query := `SELECT * FROM withdrawals WHERE withdrawal_id = $1`
	err := r.db.GetContext(ctx, &w, query, withdrawalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return &w, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Withdrawal, error) {
	withdrawals := []Withdrawal{}
	query := `
		SELECT * FROM withdrawals
		WHERE user_id = $1 AND ($2 = 0 OR withdrawal_id < $2)
		ORDER BY withdrawal_id DESC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &withdrawals, query, userID, cursor, limit); err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (r *Repository) ListByStatus(ctx context.Context, status string, limit int, cursor int64) ([]Withdrawal, error) {
	withdrawals := []Withdrawal{}
	query := `
		SELECT * FROM withdrawals
		WHERE status = $1 AND ($2 = 0 OR withdrawal_id < $2)
		ORDER BY withdrawal_id DESC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &withdrawals, query, status, cursor, limit); err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}

// Transition moves an applied withdrawal into a processed state. The
// status guard in the WHERE clause makes concurrent processing of the
// same withdrawal resolve to exactly one winner.
func (r *Repository) Transition(ctx context.Context, withdrawalID int64, status string, rejectReason, adminNote *string) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = $1, reject_reason = $2, admin_note = $3, processed_at = NOW()
		WHERE withdrawal_id = $4 AND status = 'applied'`
	result, err := r.db.ExecContext(ctx, query, status, rejectReason, adminNote, withdrawalID)
	if err != nil {
		return false, fmt.Errorf("failed to transition withdrawal: %w", err)
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}

// MarkPaid finalizes an approved withdrawal after payout.
func (r *Repository) MarkPaid(ctx context.Context, withdrawalID int64, adminNote *string) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = 'paid', admin_note = COALESCE($1, admin_note), processed_at = NOW()
		WHERE withdrawal_id = $2 AND status IN ('applied', 'approved')`
	result, err := r.db.ExecContext(ctx, query, adminNote, withdrawalID)
	if err != nil {
		return false, fmt.Errorf("failed to mark withdrawal paid: %w", err)
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}
