package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNoActive       = errors.New("no active subscription")
	ErrAlreadyClaimed = errors.New("daily reward already claimed today")
)

const pqUniqueViolation = "23505"

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, userID int64, paymentID *int64, startAt, endAt time.Time) (*Subscription, error) {
	sub := &Subscription{}
	query := `
		INSERT INTO subscriptions (user_id, payment_id, status, start_at, end_at)
		VALUES ($1, $2, 'active', $3, $4)
		RETURNING *`
	err := r.db.QueryRowxContext(ctx, query, userID, paymentID, startAt, endAt).StructScan(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return sub, nil
}

// Extend pushes the end date of an existing card out; used for renewal
// while a card is still active.
func (r *Repository) Extend(ctx context.Context, subscriptionID int64, newEndAt time.Time) (*Subscription, error) {
	sub := &Subscription{}
	query := `
		UPDATE subscriptions
		SET end_at = $1
		WHERE subscription_id = $2
		RETURNING *`
	err := r.db.QueryRowxContext(ctx, query, newEndAt, subscriptionID).StructScan(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to extend subscription: %w", err)
	}
	return sub, nil
}

// GetActive returns the unexpired card with the latest end date.
func (r *Repository) GetActive(ctx context.Context, userID int64, now time.Time) (*Subscription, error) {
	sub := &Subscription{}
	query := `
		SELECT * FROM subscriptions
		WHERE user_id = $1 AND status = 'active' AND end_at > $2
		ORDER BY end_at DESC
		LIMIT 1`
	err := r.db.GetContext(ctx, sub, query, userID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}
	return sub, nil
}

// CreateClaim inserts the day's claim row. The unique index on
// (user_id, claim_date) turns a duplicate claim into ErrAlreadyClaimed.
func (r *Repository) CreateClaim(ctx context.Context, c *DailyRewardClaim) error {
	query := `
		INSERT INTO daily_reward_claims (user_id, subscription_id, claim_date, credits_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING claim_id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		c.UserID, c.SubscriptionID, c.ClaimDate, c.CreditsAmount,
	).Scan(&c.ClaimID, &c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrAlreadyClaimed
		}
		return fmt.Errorf("failed to create daily reward claim: %w", err)
	}
	return nil
}

// DeleteClaim reverses a claim row whose credit grant never landed.
func (r *Repository) DeleteClaim(ctx context.Context, claimID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM daily_reward_claims WHERE claim_id = $1`, claimID); err != nil {
		return fmt.Errorf("failed to delete daily reward claim: %w", err)
	}
	return nil
}

func (r *Repository) HasClaim(ctx context.Context, userID int64, day time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM daily_reward_claims WHERE user_id = $1 AND claim_date = $2)`
	if err := r.db.GetContext(ctx, &exists, query, userID, day); err != nil {
		return false, fmt.Errorf("failed to check daily reward claim: %w", err)
	}
	return exists, nil
}
