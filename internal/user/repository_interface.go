package user

import "context"

type Store interface {
	Create(ctx context.Context, nickname, email, passwordHash, role string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, userID int64) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}
