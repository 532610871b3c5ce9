package jobs

import (
	"time"

	"lectern/internal/download"
	"lectern/internal/pipeline"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// DownloadRequest describes a capture handed over by the browser extension.
type DownloadRequest struct {
	Title      string                    `json:"title"`
	Credential download.StreamCredential `json:"credential"`
	Window     *download.Range           `json:"window,omitempty"`
	Process    bool                      `json:"process"`
}

// DownloadJob tracks one stream capture from fetch through merge.
type DownloadJob struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Status    Status          `json:"status"`
	Progress  float64         `json:"progress"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	VideoPath string          `json:"video_path,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Request   DownloadRequest `json:"-"`
}

// ProcessingRequest describes one pipeline run over a downloaded video.
type ProcessingRequest struct {
	VideoPath         string `json:"video_path"`
	Title             string `json:"title"`
	SkipTranscription bool   `json:"skip_transcription"`
	SkipFrames        bool   `json:"skip_frames"`
	SkipSlides        bool   `json:"skip_slides"`
	SkipNotes         bool   `json:"skip_notes"`
}

// ProcessingJob tracks one pipeline run.
type ProcessingJob struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Status    Status            `json:"status"`
	Stage     pipeline.State    `json:"stage"`
	Progress  float64           `json:"progress"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorCode string            `json:"error_code,omitempty"`
	Result    *pipeline.Result  `json:"result,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Request   ProcessingRequest `json:"-"`
}

func (j *DownloadJob) snapshot() DownloadJob {
	copied := *j
	return copied
}

func (j *ProcessingJob) snapshot() ProcessingJob {
	copied := *j
	return copied
}
