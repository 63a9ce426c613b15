package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("task not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO tasks (user_id, prompt, duration_sec, ratio, model, reference_image_url,
			vendor, vendor_task_id, status, progress, cost_credits, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING task_id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		t.UserID, t.Prompt, t.DurationSec, t.Ratio, t.Model, t.ReferenceImageURL,
		t.Vendor, t.VendorTaskID, t.Status, t.Progress, t.CostCredits, t.StartedAt,
	).Scan(&t.TaskID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, taskID, userID int64) (*Task, error) {
	var t Task
	query := `SELECT * FROM tasks WHERE task_id = $1 AND user_id = $2`
	err := r.db.GetContext(ctx, &t, query, taskID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

func (r *Repository) List(ctx context.Context, userID int64, status string, limit int, cursor int64) ([]Task, error) {
	tasks := []Task{}
	query := `
		SELECT * FROM tasks
		WHERE user_id = $1 AND ($2 = '' OR status = $2) AND ($3 = 0 OR task_id < $3)
		ORDER BY task_id DESC
		LIMIT $4`
	if err := r.db.SelectContext(ctx, &tasks, query, userID, status, cursor, limit); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// SetProgress records a non-terminal vendor observation.
func (r *Repository) SetProgress(ctx context.Context, taskID int64, status string, progress int) error {
	query := `
		UPDATE tasks SET status = $1, progress = $2
		WHERE task_id = $3 AND status IN ('QUEUED', 'IN_PROGRESS')`
	if _, err := r.db.ExecContext(ctx, query, status, progress, taskID); err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}
	return nil
}

// ClaimSuccess moves a live task into SUCCESS. Returns false when the
// task was already terminal, which means another pass won the claim.
func (r *Repository) ClaimSuccess(ctx context.Context, taskID, videoID int64) (bool, error) {
	query := `
		UPDATE tasks SET status = 'SUCCESS', progress = 100, video_id = $1, completed_at = NOW()
		WHERE task_id = $2 AND status IN ('QUEUED', 'IN_PROGRESS')`
	result, err := r.db.ExecContext(ctx, query, videoID, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to claim task success: %w", err)
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}

// ClaimFailure moves a live task into FAILURE. The conditional update
// is the only gate in front of the refund, so exactly one caller ever
// sees claimed=true for a given task.
func (r *Repository) ClaimFailure(ctx context.Context, taskID int64, errorMessage string) (bool, error) {
	query := `
		UPDATE tasks SET status = 'FAILURE', error_message = $1, completed_at = NOW()
		WHERE task_id = $2 AND status IN ('QUEUED', 'IN_PROGRESS')`
	result, err := r.db.ExecContext(ctx, query, errorMessage, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to claim task failure: %w", err)
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}

// ListStale returns live tasks that started before the cutoff, for
// the background timeout sweep.
func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Task, error) {
	tasks := []Task{}
	query := `
		SELECT * FROM tasks
		WHERE status IN ('QUEUED', 'IN_PROGRESS') AND started_at < $1
		ORDER BY task_id
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &tasks, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale tasks: %w", err)
	}
	return tasks, nil
}
