package dyuapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the surface the task engine depends on. The HTTP
// implementation talks to the DyuAPI Sora2 endpoints; tests swap in
// a stub.
type Client interface {
	CreateTextToVideo(ctx context.Context, req GenerationRequest) (*TaskResult, error)
	CreateImageToVideo(ctx context.Context, req GenerationRequest) (*TaskResult, error)
	GetTaskStatus(ctx context.Context, vendorTaskID string) (*TaskResult, error)
	GetVideoDetail(ctx context.Context, vendorVideoID string) (*VideoResult, error)
	GetDownloadURL(ctx context.Context, vendorVideoID string, watermark bool) (string, error)
	CancelTask(ctx context.Context, vendorTaskID string) error
}

// GenerationRequest carries the inputs for a generation submission.
// ImageURL is only set for image-to-video.
type GenerationRequest struct {
	Prompt      string
	ImageURL    string
	DurationSec int
	Ratio       string
	Model       string
}

// TaskResult is the normalized view of a vendor task, after status
// mapping and payload-shape tolerance.
type TaskResult struct {
	VendorTaskID  string
	Status        string
	Progress      int
	VendorVideoID string
	ErrorMessage  string
}

// VideoResult is the normalized view of a finished vendor video.
type VideoResult struct {
	VendorVideoID          string
	DurationSec            int
	Ratio                  string
	Width                  int
	Height                 int
	FileSizeBytes          int64
	WatermarkedPlayURL     string
	NoWatermarkDownloadURL string
}

type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// VendorError reports a non-2xx response from the vendor API.
// Transient errors (5xx, 429) leave the task polling; anything else
// is terminal for the submission path.
type VendorError struct {
	StatusCode int
	Body       string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("dyuapi: status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the caller should retry later rather
// than fail the task.
func (e *VendorError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dyuapi request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &VendorError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

func (c *HTTPClient) CreateTextToVideo(ctx context.Context, req GenerationRequest) (*TaskResult, error) {
	model := req.Model
	if model == "" {
		model = ModelName(req.DurationSec, req.Ratio)
	}
	payload := map[string]any{
		"model":        model,
		"prompt":       req.Prompt,
		"duration":     req.DurationSec,
		"aspect_ratio": req.Ratio,
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/video/generations", nil, payload)
	if err != nil {
		return nil, err
	}
	return ParseTaskResponse(resp), nil
}

func (c *HTTPClient) CreateImageToVideo(ctx context.Context, req GenerationRequest) (*TaskResult, error) {
	model := req.Model
	if model == "" {
		model = ModelName(req.DurationSec, req.Ratio)
	}
	payload := map[string]any{
		"model":        model,
		"prompt":       req.Prompt,
		"image_url":    req.ImageURL,
		"duration":     req.DurationSec,
		"aspect_ratio": req.Ratio,
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/video/generations", nil, payload)
	if err != nil {
		return nil, err
	}
	return ParseTaskResponse(resp), nil
}

func (c *HTTPClient) GetTaskStatus(ctx context.Context, vendorTaskID string) (*TaskResult, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/video/generations/"+url.PathEscape(vendorTaskID), nil, nil)
	if err != nil {
		return nil, err
	}
	return ParseTaskResponse(resp), nil
}

func (c *HTTPClient) GetVideoDetail(ctx context.Context, vendorVideoID string) (*VideoResult, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/videos/"+url.PathEscape(vendorVideoID), nil, nil)
	if err != nil {
		return nil, err
	}
	return ParseVideoResponse(resp), nil
}

func (c *HTTPClient) GetDownloadURL(ctx context.Context, vendorVideoID string, watermark bool) (string, error) {
	q := url.Values{}
	q.Set("watermark", fmt.Sprintf("%t", watermark))
	resp, err := c.do(ctx, http.MethodGet, "/v1/videos/"+url.PathEscape(vendorVideoID)+"/download", q, nil)
	if err != nil {
		return "", err
	}
	dl, _ := resp["download_url"].(string)
	return dl, nil
}

func (c *HTTPClient) CancelTask(ctx context.Context, vendorTaskID string) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/video/generations/"+url.PathEscape(vendorTaskID)+"/cancel", nil, nil)
	return err
}
