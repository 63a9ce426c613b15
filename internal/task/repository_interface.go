package task

import (
	"context"
	"time"
)

type Store interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, taskID, userID int64) (*Task, error)
	List(ctx context.Context, userID int64, status string, limit int, cursor int64) ([]Task, error)
	SetProgress(ctx context.Context, taskID int64, status string, progress int) error
	ClaimSuccess(ctx context.Context, taskID, videoID int64) (bool, error)
	ClaimFailure(ctx context.Context, taskID int64, errorMessage string) (bool, error)
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Task, error)
}
