package task

import (
	"time"

	"github.com/Believetim-cloud/SkyRiff/internal/dyuapi"
)

// Task statuses, shared with the vendor mapping layer.
const (
	StatusQueued     = dyuapi.StatusQueued
	StatusInProgress = dyuapi.StatusInProgress
	StatusSuccess    = dyuapi.StatusSuccess
	StatusFailure    = dyuapi.StatusFailure
)

// Task is one paid generation attempt. CostCredits records the hold
// taken at creation; the refund path always repays exactly this
// amount.
type Task struct {
	TaskID            int64      `db:"task_id" json:"task_id"`
	UserID            int64      `db:"user_id" json:"-"`
	Prompt            string     `db:"prompt" json:"prompt"`
	DurationSec       int        `db:"duration_sec" json:"duration_sec"`
	Ratio             string     `db:"ratio" json:"ratio"`
	Model             string     `db:"model" json:"model"`
	ReferenceImageURL *string    `db:"reference_image_url" json:"reference_image_url,omitempty"`
	Vendor            string     `db:"vendor" json:"vendor"`
	VendorTaskID      *string    `db:"vendor_task_id" json:"-"`
	Status            string     `db:"status" json:"status"`
	Progress          int        `db:"progress" json:"progress"`
	CostCredits       int        `db:"cost_credits" json:"cost_credits"`
	VideoID           *int64     `db:"video_id" json:"video_id,omitempty"`
	ErrorMessage      *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt         time.Time  `db:"started_at" json:"started_at"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`

	// VideoURL is the play URL of the linked asset, attached on read for
	// succeeded tasks. Not a column.
	VideoURL *string `db:"-" json:"video_url,omitempty"`
}

func (t *Task) Terminal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailure
}
