package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Believetim-cloud/SkyRiff/internal/config"
	"github.com/Believetim-cloud/SkyRiff/internal/dyuapi"
	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/metrics"
	"github.com/Believetim-cloud/SkyRiff/internal/video"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

var (
	ErrInvalidDuration = errors.New("unsupported video duration")
	ErrInvalidRatio    = errors.New("unsupported aspect ratio")
)

// CacheEnqueuer queues a finished video for local mirroring. The
// queue push is best-effort; financial state never depends on it.
type CacheEnqueuer interface {
	Enqueue(ctx context.Context, videoID int64, url string) error
}

type Service struct {
	repo      Store
	videoRepo video.Store
	cache     CacheEnqueuer
	ledger    wallet.Ledger
	vendor    dyuapi.Client
	tariff    config.Tariff
	now       func() time.Time
}

func NewService(repo Store, videoRepo video.Store, cache CacheEnqueuer, ledger wallet.Ledger, vendor dyuapi.Client, tariff config.Tariff) *Service {
	return &Service{
		repo:      repo,
		videoRepo: videoRepo,
		cache:     cache,
		ledger:    ledger,
		vendor:    vendor,
		tariff:    tariff,
		now:       time.Now,
	}
}

type CreateRequest struct {
	Prompt            string `json:"prompt" binding:"required,min=1,max=2000"`
	DurationSec       int    `json:"duration_sec" binding:"required"`
	Ratio             string `json:"ratio" binding:"required"`
	ReferenceImageURL string `json:"reference_image_url" binding:"omitempty,max=500"`
}

// Create holds the generation cost, submits the job to the vendor and
// persists the task. The hold is reversed before the error is
// surfaced whenever vendor submission fails, so a failed create never
// leaves credits dangling.
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*Task, error) {
	cost, ok := s.tariff.GenerationCost(req.DurationSec)
	if !ok {
		return nil, ErrInvalidDuration
	}
	if !s.tariff.ValidRatio(req.Ratio) {
		return nil, ErrInvalidRatio
	}

	desc := fmt.Sprintf("Hold for %ds video generation", req.DurationSec)
	if _, err := s.ledger.DebitCredits(ctx, userID, cost, wallet.TypeGenHold, nil, desc); err != nil {
		return nil, err
	}

	genReq := dyuapi.GenerationRequest{
		Prompt:      req.Prompt,
		ImageURL:    req.ReferenceImageURL,
		DurationSec: req.DurationSec,
		Ratio:       req.Ratio,
	}
	var (
		result *dyuapi.TaskResult
		err    error
	)
	if req.ReferenceImageURL != "" {
		result, err = s.vendor.CreateImageToVideo(ctx, genReq)
	} else {
		result, err = s.vendor.CreateTextToVideo(ctx, genReq)
	}
	if err != nil {
		refundDesc := fmt.Sprintf("Refund for failed submission: %v", err)
		if _, refundErr := s.ledger.CreditCredits(ctx, userID, cost, wallet.TypeGenRefund, nil, refundDesc); refundErr != nil {
			logger.Errorf("Failed to refund submission hold for user %d: %v", userID, refundErr)
		}
		metrics.RecordTaskRefund("submission_failed")
		return nil, fmt.Errorf("vendor submission failed: %w", err)
	}

	t := &Task{
		UserID:      userID,
		Prompt:      req.Prompt,
		DurationSec: req.DurationSec,
		Ratio:       req.Ratio,
		Model:       dyuapi.ModelName(req.DurationSec, req.Ratio),
		Vendor:      video.VendorDyuAPISora2,
		Status:      StatusQueued,
		CostCredits: cost,
		StartedAt:   s.now(),
	}
	if req.ReferenceImageURL != "" {
		t.ReferenceImageURL = &req.ReferenceImageURL
	}
	if result.VendorTaskID != "" {
		t.VendorTaskID = &result.VendorTaskID
	}

	if err := s.repo.Create(ctx, t); err != nil {
		// The vendor job is already running; refund the hold and let
		// the orphaned vendor task expire on its own.
		if _, refundErr := s.ledger.CreditCredits(ctx, userID, cost, wallet.TypeGenRefund, nil, "Refund for task persistence failure"); refundErr != nil {
			logger.Errorf("Failed to refund persistence hold for user %d: %v", userID, refundErr)
		}
		metrics.RecordTaskRefund("persist_failed")
		return nil, err
	}

	metrics.RecordTaskCreated(t.DurationSec)
	logger.Infof("Task %d created for user %d (%d credits held)", t.TaskID, userID, cost)
	return t, nil
}

// Synchronize reconciles a task with the vendor on a client poll.
// Terminal tasks are returned unchanged. Vendor errors leave the task
// in its prior state for the next poll.
func (s *Service) Synchronize(ctx context.Context, taskID, userID int64) (*Task, error) {
	t, err := s.repo.GetByID(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if t.Terminal() {
		s.attachVideoURL(ctx, t)
		return t, nil
	}

	if s.now().Sub(t.StartedAt) > s.tariff.TaskTimeout {
		s.failTask(ctx, t, "Generation timed out", "timeout")
		return t, nil
	}

	if t.VendorTaskID == nil || *t.VendorTaskID == "" {
		s.failTask(ctx, t, "Task has no vendor job", "missing_vendor_id")
		return t, nil
	}

	result, err := s.vendor.GetTaskStatus(ctx, *t.VendorTaskID)
	if err != nil {
		logger.Warnf("Vendor poll for task %d failed: %v", t.TaskID, err)
		return t, nil
	}

	switch result.Status {
	case StatusSuccess:
		s.completeTask(ctx, t, result)
	case StatusFailure:
		msg := result.ErrorMessage
		if msg == "" {
			msg = "Vendor reported failure"
		}
		s.failTask(ctx, t, msg, "vendor_failure")
	default:
		if err := s.repo.SetProgress(ctx, t.TaskID, result.Status, result.Progress); err != nil {
			logger.Warnf("Failed to persist progress for task %d: %v", t.TaskID, err)
		} else {
			t.Status = result.Status
			t.Progress = result.Progress
		}
	}
	return t, nil
}

// completeTask materializes the video asset and flips the task into
// SUCCESS. The asset row is committed before the cache mirror is
// queued; mirroring is best-effort.
func (s *Service) completeTask(ctx context.Context, t *Task, result *dyuapi.TaskResult) {
	if result.VendorVideoID == "" {
		s.failTask(ctx, t, "Vendor reported success without a video", "missing_video_id")
		return
	}

	asset := &video.Asset{
		UserID:        t.UserID,
		TaskID:        &t.TaskID,
		DurationSec:   t.DurationSec,
		Ratio:         t.Ratio,
		Vendor:        video.VendorDyuAPISora2,
		VendorVideoID: &result.VendorVideoID,
	}
	if detail, err := s.vendor.GetVideoDetail(ctx, result.VendorVideoID); err != nil {
		logger.Warnf("Failed to fetch video detail for task %d: %v", t.TaskID, err)
	} else {
		if detail.Width > 0 {
			asset.Width = &detail.Width
		}
		if detail.Height > 0 {
			asset.Height = &detail.Height
		}
		if detail.FileSizeBytes > 0 {
			asset.FileSizeBytes = &detail.FileSizeBytes
		}
		if detail.WatermarkedPlayURL != "" {
			asset.WatermarkedPlayURL = &detail.WatermarkedPlayURL
		}
	}

	if err := s.videoRepo.Create(ctx, asset); err != nil {
		// Leave the task live; the next poll retries materialization.
		logger.Errorf("Failed to create video asset for task %d: %v", t.TaskID, err)
		return
	}

	claimed, err := s.repo.ClaimSuccess(ctx, t.TaskID, asset.VideoID)
	if err != nil {
		logger.Errorf("Failed to claim success for task %d: %v", t.TaskID, err)
		return
	}
	if !claimed {
		return
	}

	now := s.now()
	t.Status = StatusSuccess
	t.Progress = 100
	t.VideoID = &asset.VideoID
	t.VideoURL = asset.WatermarkedPlayURL
	t.CompletedAt = &now
	metrics.RecordTaskTransition(StatusSuccess)
	logger.Infof("Task %d succeeded, video %d created", t.TaskID, asset.VideoID)

	if asset.WatermarkedPlayURL != nil {
		if err := s.cache.Enqueue(ctx, asset.VideoID, *asset.WatermarkedPlayURL); err != nil {
			logger.Warnf("Failed to queue video %d for caching: %v", asset.VideoID, err)
		}
	}
}

// attachVideoURL fills the non-persisted play URL for a succeeded task.
func (s *Service) attachVideoURL(ctx context.Context, t *Task) {
	if t.Status != StatusSuccess || t.VideoID == nil {
		return
	}
	asset, err := s.videoRepo.GetByID(ctx, *t.VideoID, t.UserID)
	if err != nil {
		logger.Warnf("Failed to load video %d for task %d: %v", *t.VideoID, t.TaskID, err)
		return
	}
	t.VideoURL = asset.WatermarkedPlayURL
}

// failTask transitions a live task into FAILURE and refunds the hold.
// The conditional claim guarantees the refund runs at most once even
// when the poll path and the background sweep race.
func (s *Service) failTask(ctx context.Context, t *Task, errorMessage, reason string) {
	claimed, err := s.repo.ClaimFailure(ctx, t.TaskID, errorMessage)
	if err != nil {
		logger.Errorf("Failed to claim failure for task %d: %v", t.TaskID, err)
		return
	}
	if !claimed {
		return
	}

	now := s.now()
	t.Status = StatusFailure
	t.ErrorMessage = &errorMessage
	t.CompletedAt = &now
	metrics.RecordTaskTransition(StatusFailure)

	ref := &wallet.Ref{Type: wallet.RefTask, ID: t.TaskID}
	desc := fmt.Sprintf("Refund for failed task #%d: %s", t.TaskID, errorMessage)
	if _, err := s.ledger.CreditCredits(ctx, t.UserID, t.CostCredits, wallet.TypeGenRefund, ref, desc); err != nil {
		// The claim already happened, so this refund has no second
		// chance. Treat it as an internal fault needing operator action.
		logger.Errorf("CRITICAL: refund of %d credits for task %d failed after claim: %v", t.CostCredits, t.TaskID, err)
		return
	}
	metrics.RecordTaskRefund(reason)
	logger.Infof("Task %d failed (%s), %d credits refunded", t.TaskID, reason, t.CostCredits)
}

func (s *Service) List(ctx context.Context, userID int64, status string, limit int, cursor int64) ([]Task, error) {
	return s.repo.List(ctx, userID, status, limit, cursor)
}

// ReconcileStale times out live tasks whose generation window has
// passed, independent of client polling. Shares the claim path with
// Synchronize so a concurrent poll cannot double-refund.
func (s *Service) ReconcileStale(ctx context.Context, batch int) (int, error) {
	cutoff := s.now().Add(-s.tariff.TaskTimeout)
	stale, err := s.repo.ListStale(ctx, cutoff, batch)
	if err != nil {
		return 0, err
	}

	failed := 0
	for i := range stale {
		t := stale[i]
		s.failTask(ctx, &t, "Generation timed out", "timeout_sweep")
		if t.Status == StatusFailure {
			failed++
		}
	}
	return failed, nil
}
