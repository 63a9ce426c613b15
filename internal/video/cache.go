package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/metrics"
)

const (
	cacheQueue       = "video_cache"
	cacheFailedQueue = "video_cache:failed"
	maxCacheTries    = 3
)

type CacheJob struct {
	VideoID int64     `json:"video_id"`
	URL     string    `json:"url"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// CacheService mirrors vendor-hosted videos into the local static
// directory. Vendor play URLs are short-lived, so finished videos are
// queued for download and the asset row is repointed at the local
// copy once the file lands.
type CacheService struct {
	redis      *redis.Client
	repo       Store
	staticDir  string
	httpClient *http.Client
}

func NewCacheService(redisAddr string, repo Store, staticDir string) *CacheService {
	return &CacheService{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		repo:      repo,
		staticDir: staticDir,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (s *CacheService) Enqueue(ctx context.Context, videoID int64, url string) error {
	if url == "" {
		return nil
	}

	job := CacheJob{
		VideoID: videoID,
		URL:     url,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal cache job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, cacheQueue, data).Err(); err != nil {
		logger.Errorf("Failed to queue video %d for caching: %v", videoID, err)
		return err
	}

	logger.Infof("Video %d queued for local caching", videoID)
	return nil
}

func (s *CacheService) Start(ctx context.Context) {
	logger.Info("Video cache service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Video cache service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *CacheService) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, cacheQueue).Result()
	if err != nil {
		return
	}

	var job CacheJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad cache job data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Caching video %d (attempt %d)", job.VideoID, job.Tries)
	if err := s.cacheNow(ctx, job); err != nil {
		logger.Errorf("Failed to cache video %d: %v", job.VideoID, err)
		metrics.RecordVideoCacheJob("error")

		if job.Tries < maxCacheTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), cacheQueue, data)
			logger.Infof("Retrying video %d cache (attempt %d)", job.VideoID, job.Tries+1)
		} else {
			logger.Errorf("Video %d cache failed after %d attempts", job.VideoID, maxCacheTries)
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordVideoCacheJob("ok")
	logger.Infof("Video %d cached locally", job.VideoID)
}

func (s *CacheService) cacheNow(ctx context.Context, job CacheJob) error {
	dir := filepath.Join(s.staticDir, "videos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	filename := fmt.Sprintf("video_%d.mp4", job.VideoID)
	localPath := filepath.Join(dir, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download video: status %d", resp.StatusCode)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(localPath)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	localURL := "/static/videos/" + filename
	if err := s.repo.SetLocalPlayURL(ctx, job.VideoID, localURL); err != nil {
		return fmt.Errorf("repoint play url: %w", err)
	}
	return nil
}

func (s *CacheService) saveFailed(job CacheJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), cacheFailedQueue, data)
	logger.Errorf("Cache job moved to failed queue: video %d", job.VideoID)
}

func (s *CacheService) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, cacheQueue).Result()
	return length
}

func (s *CacheService) Close() error {
	return s.redis.Close()
}
