package withdrawal

import "context"

type Store interface {
	Create(ctx context.Context, w *Withdrawal) error
	GetByID(ctx context.Context, withdrawalID int64) (*Withdrawal, error)
	ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Withdrawal, error)
	ListByStatus(ctx context.Context, status string, limit int, cursor int64) ([]Withdrawal, error)
	Transition(ctx context.Context, withdrawalID int64, status string, rejectReason, adminNote *string) (bool, error)
	MarkPaid(ctx context.Context, withdrawalID int64, adminNote *string) (bool, error)
}
