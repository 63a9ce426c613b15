package video

import "context"

type Store interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, videoID, userID int64) (*Asset, error)
	List(ctx context.Context, userID int64, limit int, cursor int64) ([]Asset, error)
	SetLocalPlayURL(ctx context.Context, videoID int64, localURL string) error
	IncrementDownloadCount(ctx context.Context, videoID int64) error
}
