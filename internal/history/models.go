package history

import "time"

// Status mirrors the lifecycle of a processing job for persisted records.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Recording is one processed (or in-flight) lecture recording.
type Recording struct {
	ID           string
	Title        string
	RecordingDir string
	VideoPath    string
	Status       Status
	Stage        string
	Progress     float64
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}
