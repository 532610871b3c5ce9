package api

import (
	"lectern/internal/download"
	"lectern/internal/jobs"
	"lectern/internal/services"
)

// DownloadPayload is the capture handoff from the browser extension. Field
// names match what the extension sniffs from the player's CDN requests.
type DownloadPayload struct {
	Title         string            `json:"title"`
	BaseURL       string            `json:"baseUrl"`
	KeyPairID     string            `json:"keyPairId,omitempty"`
	Policy        string            `json:"policy,omitempty"`
	Signature     string            `json:"signature,omitempty"`
	ExtraParams   map[string]string `json:"extraParams,omitempty"`
	DetectedChunk *int              `json:"detectedChunk,omitempty"`
	StartTime     *float64          `json:"startTime,omitempty"`
	EndTime       *float64          `json:"endTime,omitempty"`
	Process       bool              `json:"process,omitempty"`
}

// ToJobRequest converts the wire payload into a registry request.
func (p DownloadPayload) ToJobRequest() (jobs.DownloadRequest, error) {
	if p.Title == "" {
		return jobs.DownloadRequest{}, services.Wrap(services.ErrValidation, "api", "download request", "title is required", nil)
	}
	tokens := make(map[string]string, len(p.ExtraParams)+3)
	for key, value := range p.ExtraParams {
		tokens[key] = value
	}
	if p.KeyPairID != "" {
		tokens["Key-Pair-Id"] = p.KeyPairID
	}
	if p.Policy != "" {
		tokens["Policy"] = p.Policy
	}
	if p.Signature != "" {
		tokens["Signature"] = p.Signature
	}

	req := jobs.DownloadRequest{
		Title: p.Title,
		Credential: download.StreamCredential{
			BaseURL:            p.BaseURL,
			AuthTokens:         tokens,
			LastKnownGoodIndex: p.DetectedChunk,
		},
		Process: p.Process,
	}
	if p.StartTime != nil || p.EndTime != nil {
		window := download.Range{}
		if p.StartTime != nil {
			window.StartSeconds = *p.StartTime
		}
		if p.EndTime != nil {
			window.EndSeconds = *p.EndTime
		}
		req.Window = &window
	}
	return req, nil
}

// ProcessPayload requests a pipeline run over an already-downloaded video.
type ProcessPayload struct {
	Title             string `json:"title"`
	VideoPath         string `json:"videoPath"`
	SkipTranscription bool   `json:"skipTranscription,omitempty"`
	SkipFrames        bool   `json:"skipFrames,omitempty"`
	SkipSlides        bool   `json:"skipSlides,omitempty"`
	SkipNotes         bool   `json:"skipNotes,omitempty"`
}

// ToJobRequest converts the wire payload into a registry request.
func (p ProcessPayload) ToJobRequest() jobs.ProcessingRequest {
	return jobs.ProcessingRequest{
		VideoPath:         p.VideoPath,
		Title:             p.Title,
		SkipTranscription: p.SkipTranscription,
		SkipFrames:        p.SkipFrames,
		SkipSlides:        p.SkipSlides,
		SkipNotes:         p.SkipNotes,
	}
}

// HealthResponse reports daemon liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// JobsResponse lists all tracked jobs.
type JobsResponse struct {
	Downloads  []jobs.DownloadJob   `json:"downloads"`
	Processing []jobs.ProcessingJob `json:"processing"`
}

// RecordingView is the dashboard's row for one past recording.
type RecordingView struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	RecordingDir string  `json:"recording_dir"`
	VideoPath    string  `json:"video_path,omitempty"`
	Status       string  `json:"status"`
	Stage        string  `json:"stage,omitempty"`
	Progress     float64 `json:"progress"`
	Error        string  `json:"error,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  string  `json:"completed_at,omitempty"`
}

// RecordingsResponse lists persisted recordings.
type RecordingsResponse struct {
	Recordings []RecordingView `json:"recordings"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
