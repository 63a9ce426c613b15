package payment

import "context"

type Store interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, paymentID int64) (*Payment, error)
	ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Payment, error)
	SetPayParams(ctx context.Context, paymentID int64, payParams string) error
	MarkPaid(ctx context.Context, paymentID int64) (bool, error)
	MarkFailed(ctx context.Context, paymentID int64) (bool, error)
}
