package subscription

import (
	"context"
	"time"
)

type Store interface {
	Create(ctx context.Context, userID int64, paymentID *int64, startAt, endAt time.Time) (*Subscription, error)
	Extend(ctx context.Context, subscriptionID int64, newEndAt time.Time) (*Subscription, error)
	GetActive(ctx context.Context, userID int64, now time.Time) (*Subscription, error)
	CreateClaim(ctx context.Context, c *DailyRewardClaim) error
	DeleteClaim(ctx context.Context, claimID int64) error
	HasClaim(ctx context.Context, userID int64, day time.Time) (bool, error)
}
