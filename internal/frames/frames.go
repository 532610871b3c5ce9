// Package frames extracts slide-candidate still images from a lecture
// recording. It combines ffmpeg scene detection with a fixed-interval grid,
// then prunes near-duplicate frames by perceptual hash.
package frames

import (
	"fmt"
	"log/slog"

	"github.com/corona10/goimagehash"

	"lectern/internal/logging"
	"lectern/internal/media"
)

// Options tunes extraction and deduplication.
type Options struct {
	SceneThreshold float64
	MinInterval    float64
	FixedInterval  float64
	MaxFrames      int
	HashThreshold  int
	SkipIntro      float64
	SkipOutro      float64
}

// Frame is one extracted slide candidate.
type Frame struct {
	Path             string  `json:"path"`
	Filename         string  `json:"filename"`
	TimestampSeconds float64 `json:"timestamp"`
	TimestampDisplay string  `json:"timestamp_display"`

	hash *goimagehash.ImageHash
}

// Extractor runs the full frame-extraction stage.
type Extractor struct {
	toolbox *media.Toolbox
	opts    Options
	logger  *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger disables logging.
func NewExtractor(toolbox *media.Toolbox, opts Options, logger *slog.Logger) *Extractor {
	if opts.SceneThreshold <= 0 {
		opts.SceneThreshold = 0.15
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 3
	}
	if opts.FixedInterval <= 0 {
		opts.FixedInterval = 30
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = 500
	}
	if opts.HashThreshold <= 0 {
		opts.HashThreshold = 8
	}
	return &Extractor{
		toolbox: toolbox,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "frames"),
	}
}

// FormatTimestampFilename renders a timestamp as HH_MM_SS for sortable,
// filesystem-safe frame filenames.
func FormatTimestampFilename(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d_%02d_%02d", total/3600, (total%3600)/60, total%60)
}

// FormatTimestampDisplay renders a timestamp as HH:MM:SS.
func FormatTimestampDisplay(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
