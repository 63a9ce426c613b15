package dyuapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Believetim-cloud/SkyRiff/internal/logger"
)

// Platform task statuses as stored in the tasks table.
const (
	StatusQueued     = "QUEUED"
	StatusInProgress = "IN_PROGRESS"
	StatusSuccess    = "SUCCESS"
	StatusFailure    = "FAILURE"
)

var statusMapping = map[string]string{
	"pending":     StatusQueued,
	"processing":  StatusInProgress,
	"in_progress": StatusInProgress,
	"completed":   StatusSuccess,
	"succeeded":   StatusSuccess,
	"finished":    StatusSuccess,
	"success":     StatusSuccess,
	"failed":      StatusFailure,
	"fail":        StatusFailure,
	"failure":     StatusFailure,
	"cancelled":   StatusFailure,
}

// MapStatus translates a vendor status string into a platform status.
// Unknown values map to QUEUED so a vendor-side vocabulary change
// never strands a task in an invalid state.
func MapStatus(vendorStatus string) string {
	if vendorStatus == "" {
		return StatusQueued
	}
	if mapped, ok := statusMapping[strings.ToLower(vendorStatus)]; ok {
		return mapped
	}
	logger.Warnf("unknown vendor status %q, treating as queued", vendorStatus)
	return StatusQueued
}

var modelMapping = map[string]string{
	"landscape_10s": "sora2-landscape",
	"portrait_10s":  "sora2-portrait",
	"landscape_15s": "sora2-landscape-15s",
	"portrait_15s":  "sora2-portrait-15s",
	"landscape_25s": "sora2-pro-landscape-25s",
	"portrait_25s":  "sora2-pro-portrait-25s",
}

// ModelName picks the vendor model for a duration/ratio pair. Square
// output counts as portrait.
func ModelName(durationSec int, ratio string) string {
	orientation := "landscape"
	if ratio == "9:16" || ratio == "3:4" || ratio == "1:1" {
		orientation = "portrait"
	}

	var bucket string
	switch {
	case durationSec <= 10:
		bucket = "10s"
	case durationSec <= 15:
		bucket = "15s"
	default:
		bucket = "25s"
	}
	return modelMapping[fmt.Sprintf("%s_%s", orientation, bucket)]
}

// ParseTaskResponse normalizes a vendor task payload. The vendor
// returns either a bare object or one wrapped in "data", and moves
// identifiers between task_id, id and output.video_id depending on
// the endpoint, so every lookup here has a fallback chain.
func ParseTaskResponse(payload map[string]any) *TaskResult {
	data := payload
	if wrapped, ok := payload["data"].(map[string]any); ok {
		data = wrapped
	}

	status := MapStatus(str(data["status"]))

	progress := parseProgress(data["progress"])
	if status == StatusSuccess {
		progress = 100
	} else if status == StatusInProgress && progress == 0 {
		// Vendor omits progress on some poll responses. Report a
		// nominal value so clients don't sit at 0% for minutes.
		progress = 30
	}

	videoID := ""
	if output, ok := data["output"].(map[string]any); ok {
		videoID = str(output["video_id"])
	}
	if videoID == "" {
		if nested, ok := data["data"].(map[string]any); ok {
			videoID = str(nested["id"])
		}
	}
	if videoID == "" {
		videoID = firstStr(data["task_id"], data["id"])
	}

	errMsg := ""
	if status == StatusFailure {
		errMsg = str(data["fail_reason"])
	}

	return &TaskResult{
		VendorTaskID:  firstStr(data["task_id"], data["id"]),
		Status:        status,
		Progress:      progress,
		VendorVideoID: videoID,
		ErrorMessage:  errMsg,
	}
}

// ParseVideoResponse normalizes a vendor video detail payload.
func ParseVideoResponse(payload map[string]any) *VideoResult {
	output, _ := payload["output"].(map[string]any)

	playURL := str(payload["video_url"])
	if playURL == "" && output != nil {
		playURL = firstStr(output["preview_url"], output["url"])
	}

	duration := parseInt(payload["duration"])
	if duration == 0 && output != nil {
		duration = parseInt(output["duration"])
	}

	ratio := str(payload["aspect_ratio"])
	if ratio == "" && output != nil {
		ratio = str(output["aspect_ratio"])
	}

	var width, height int
	if output != nil {
		width = parseInt(output["width"])
		height = parseInt(output["height"])
	}
	if width == 0 {
		// Some responses only carry a "720x1280" size string.
		if size := str(payload["size"]); strings.Contains(size, "x") {
			parts := strings.SplitN(size, "x", 2)
			w, werr := strconv.Atoi(parts[0])
			h, herr := strconv.Atoi(parts[1])
			if werr == nil && herr == nil {
				width, height = w, h
			}
		}
	}

	fileSize := int64(parseInt(payload["file_size"]))
	if fileSize == 0 && output != nil {
		fileSize = int64(parseInt(output["file_size"]))
	}

	return &VideoResult{
		VendorVideoID:      str(payload["id"]),
		DurationSec:        duration,
		Ratio:              ratio,
		Width:              width,
		Height:             height,
		FileSizeBytes:      fileSize,
		WatermarkedPlayURL: playURL,
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func firstStr(vals ...any) string {
	for _, v := range vals {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

// parseProgress handles the number, "85" and "85%" shapes the vendor
// has been seen returning. The result is clamped to [0, 100].
func parseProgress(v any) int {
	var n int
	switch p := v.(type) {
	case float64:
		n = int(p)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(p, "%")))
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func parseInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
