package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lectern/internal/jobs"
)

// Client talks to a running daemon's HTTP API. It is what the CLI uses.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given bind address or base URL.
func NewClient(address string) *Client {
	base := strings.TrimRight(address, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// StartDownload submits a capture.
func (c *Client) StartDownload(ctx context.Context, payload DownloadPayload) (jobs.DownloadJob, error) {
	var out jobs.DownloadJob
	err := c.do(ctx, http.MethodPost, "/api/download", payload, &out)
	return out, err
}

// DownloadStatus fetches one download job.
func (c *Client) DownloadStatus(ctx context.Context, id string) (jobs.DownloadJob, error) {
	var out jobs.DownloadJob
	err := c.do(ctx, http.MethodGet, "/api/download/"+url.PathEscape(id), nil, &out)
	return out, err
}

// StartProcessing submits a pipeline run.
func (c *Client) StartProcessing(ctx context.Context, payload ProcessPayload) (jobs.ProcessingJob, error) {
	var out jobs.ProcessingJob
	err := c.do(ctx, http.MethodPost, "/api/process", payload, &out)
	return out, err
}

// ProcessStatus fetches one processing job.
func (c *Client) ProcessStatus(ctx context.Context, id string) (jobs.ProcessingJob, error) {
	var out jobs.ProcessingJob
	err := c.do(ctx, http.MethodGet, "/api/process/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Jobs lists all tracked jobs.
func (c *Client) Jobs(ctx context.Context) (JobsResponse, error) {
	var out JobsResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &out)
	return out, err
}

// Recordings lists persisted recordings.
func (c *Client) Recordings(ctx context.Context) (RecordingsResponse, error) {
	var out RecordingsResponse
	err := c.do(ctx, http.MethodGet, "/api/recordings", nil, &out)
	return out, err
}

// DeleteRecording removes a recording record and, when purge is set, its
// artifact directory.
func (c *Client) DeleteRecording(ctx context.Context, id string, purge bool) error {
	path := "/api/recordings/" + url.PathEscape(id)
	if purge {
		path += "?purge=1"
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon error (%d)", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
