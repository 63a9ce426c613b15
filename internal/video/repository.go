package video

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("video not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, asset *Asset) error {
	query := `
		INSERT INTO video_assets (user_id, task_id, duration_sec, ratio, width, height,
			file_size_bytes, watermarked_play_url, no_watermark_download_url, vendor, vendor_video_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING video_id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		asset.UserID, asset.TaskID, asset.DurationSec, asset.Ratio, asset.Width, asset.Height,
		asset.FileSizeBytes, asset.WatermarkedPlayURL, asset.NoWatermarkDownloadURL,
		asset.Vendor, asset.VendorVideoID,
	).Scan(&asset.VideoID, &asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create video asset: %w", err)
	}
	return nil
}

// GetByID returns the asset only if it belongs to userID.
func (r *Repository) GetByID(ctx context.Context, videoID, userID int64) (*Asset, error) {
	var asset Asset
	query := `SELECT * FROM video_assets WHERE video_id = $1 AND user_id = $2`
	err := r.db.GetContext(ctx, &asset, query, videoID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video asset: %w", err)
	}
	return &asset, nil
}

func (r *Repository) List(ctx context.Context, userID int64, limit int, cursor int64) ([]Asset, error) {
	assets := []Asset{}
	query := `
		SELECT * FROM video_assets
		WHERE user_id = $1 AND ($2 = 0 OR video_id < $2)
		ORDER BY video_id DESC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &assets, query, userID, cursor, limit); err != nil {
		return nil, fmt.Errorf("failed to list video assets: %w", err)
	}
	return assets, nil
}

// SetLocalPlayURL repoints the play URL at a locally cached copy.
func (r *Repository) SetLocalPlayURL(ctx context.Context, videoID int64, localURL string) error {
	query := `UPDATE video_assets SET watermarked_play_url = $1 WHERE video_id = $2`
	result, err := r.db.ExecContext(ctx, query, localURL, videoID)
	if err != nil {
		return fmt.Errorf("failed to update play url: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) IncrementDownloadCount(ctx context.Context, videoID int64) error {
	query := `UPDATE video_assets SET download_count = download_count + 1 WHERE video_id = $1`
	if _, err := r.db.ExecContext(ctx, query, videoID); err != nil {
		return fmt.Errorf("failed to bump download count: %w", err)
	}
	return nil
}
