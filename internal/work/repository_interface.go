package work

import "context"

type Store interface {
	Create(ctx context.Context, w *Work) error
	GetByID(ctx context.Context, workID int64) (*Work, error)
	ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Work, error)
	IncrementViewCount(ctx context.Context, workID int64) error
	CreateTip(ctx context.Context, tip *Tip) error
	CreatePromptUnlock(ctx context.Context, unlock *PromptUnlock) error
	HasUnlock(ctx context.Context, workID, userID int64) (bool, error)
	ListTips(ctx context.Context, workID int64, limit int, cursor int64) ([]Tip, error)
}
