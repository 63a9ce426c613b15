package video

import "time"

const VendorDyuAPISora2 = "dyuapi_sora2"

// Asset is a generated video owned by a user. Play and download URLs
// come from the vendor; the cache worker later repoints the play URL
// at a local copy.
type Asset struct {
	VideoID                int64     `db:"video_id" json:"video_id"`
	UserID                 int64     `db:"user_id" json:"-"`
	TaskID                 *int64    `db:"task_id" json:"task_id,omitempty"`
	DurationSec            int       `db:"duration_sec" json:"duration_sec"`
	Ratio                  string    `db:"ratio" json:"ratio"`
	Width                  *int      `db:"width" json:"width,omitempty"`
	Height                 *int      `db:"height" json:"height,omitempty"`
	FileSizeBytes          *int64    `db:"file_size_bytes" json:"file_size_bytes,omitempty"`
	WatermarkedPlayURL     *string   `db:"watermarked_play_url" json:"watermarked_play_url,omitempty"`
	NoWatermarkDownloadURL *string   `db:"no_watermark_download_url" json:"-"`
	Vendor                 string    `db:"vendor" json:"vendor"`
	VendorVideoID          *string   `db:"vendor_video_id" json:"-"`
	DownloadCount          int       `db:"download_count" json:"download_count"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
}
