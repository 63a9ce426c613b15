package work

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound        = errors.New("work not found")
	ErrAlreadyUnlocked = errors.New("prompt already unlocked")
)

const pqUniqueViolation = "23505"

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, w *Work) error {
	query := `
		INSERT INTO works (user_id, video_id, title, description, prompt, is_prompt_public,
			prompt_unlock_cost, allow_remix, status, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'published', NOW())
		RETURNING work_id, status, published_at, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		w.UserID, w.VideoID, w.Title, w.Description, w.Prompt, w.IsPromptPublic,
		w.PromptUnlockCost, w.AllowRemix,
	).Scan(&w.WorkID, &w.Status, &w.PublishedAt, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create work: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, workID int64) (*Work, error) {
	var w Work
	query := `SELECT * FROM works WHERE work_id = $1 AND status = 'published'`
	err := r.db.GetContext(ctx, &w, query, workID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work: %w", err)
	}
	return &w, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Work, error) {
	works := []Work{}
	query := `
		SELECT * FROM works
		WHERE user_id = $1 AND status = 'published' AND ($2 = 0 OR work_id < $2)
		ORDER BY work_id DESC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &works, query, userID, cursor, limit); err != nil {
		return nil, fmt.Errorf("failed to list works: %w", err)
	}
	return works, nil
}

func (r *Repository) IncrementViewCount(ctx context.Context, workID int64) error {
	query := `UPDATE works SET view_count = view_count + 1 WHERE work_id = $1`
	if _, err := r.db.ExecContext(ctx, query, workID); err != nil {
		return fmt.Errorf("failed to bump view count: %w", err)
	}
	return nil
}

// CreateTip persists the tip receipt and bumps the work's tip stats.
func (r *Repository) CreateTip(ctx context.Context, tip *Tip) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO work_tips (work_id, creator_user_id, tipper_user_id, amount_credits, amount_coins, platform_fee)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING tip_id, created_at`
	err = tx.QueryRowxContext(ctx, query,
		tip.WorkID, tip.CreatorUserID, tip.TipperUserID, tip.AmountCredits, tip.AmountCoins, tip.PlatformFee,
	).Scan(&tip.TipID, &tip.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tip receipt: %w", err)
	}

	statsQuery := `
		UPDATE works SET tip_count = tip_count + 1, total_tip_income = total_tip_income + $1
		WHERE work_id = $2`
	if _, err := tx.ExecContext(ctx, statsQuery, tip.AmountCoins, tip.WorkID); err != nil {
		return fmt.Errorf("failed to update tip stats: %w", err)
	}

	return tx.Commit()
}

// CreatePromptUnlock persists the unlock receipt. A unique index on
// (work_id, unlocking_user_id) resolves concurrent duplicates: the
// loser gets ErrAlreadyUnlocked.
func (r *Repository) CreatePromptUnlock(ctx context.Context, unlock *PromptUnlock) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO prompt_unlocks (work_id, creator_user_id, unlocking_user_id, cost_credits, income_coins, platform_fee)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING unlock_id, created_at`
	err = tx.QueryRowxContext(ctx, query,
		unlock.WorkID, unlock.CreatorUserID, unlock.UnlockingUserID, unlock.CostCredits, unlock.IncomeCoins, unlock.PlatformFee,
	).Scan(&unlock.UnlockID, &unlock.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrAlreadyUnlocked
		}
		return fmt.Errorf("failed to create unlock receipt: %w", err)
	}

	statsQuery := `
		UPDATE works SET prompt_unlock_count = prompt_unlock_count + 1, total_prompt_income = total_prompt_income + $1
		WHERE work_id = $2`
	if _, err := tx.ExecContext(ctx, statsQuery, unlock.IncomeCoins, unlock.WorkID); err != nil {
		return fmt.Errorf("failed to update unlock stats: %w", err)
	}

	return tx.Commit()
}

func (r *Repository) HasUnlock(ctx context.Context, workID, userID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM prompt_unlocks WHERE work_id = $1 AND unlocking_user_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, workID, userID); err != nil {
		return false, fmt.Errorf("failed to check unlock: %w", err)
	}
	return exists, nil
}

func (r *Repository) ListTips(ctx context.Context, workID int64, limit int, cursor int64) ([]Tip, error) {
	tips := []Tip{}
	query := `
		SELECT * FROM work_tips
		WHERE work_id = $1 AND ($2 = 0 OR tip_id < $2)
		ORDER BY tip_id DESC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &tips, query, workID, cursor, limit); err != nil {
		return nil, fmt.Errorf("failed to list tips: %w", err)
	}
	return tips, nil
}
