// Package slides analyzes extracted frame images. Each frame gets OCR text
// extraction; frames whose OCR yields too few words additionally get a
// vision-model description. Vision calls dominate pipeline cost, so the
// word-count heuristic gates them.
package slides

import (
	"context"
	"log/slog"
	"time"

	"lectern/internal/capability"
	"lectern/internal/frames"
	"lectern/internal/logging"
	"lectern/internal/textutil"
)

// Analysis is the per-frame result. VisionSkipped is true when OCR alone
// produced at least the configured word count.
type Analysis struct {
	FramePath        string  `json:"path"`
	Filename         string  `json:"filename"`
	TimestampSeconds float64 `json:"timestamp"`
	TimestampDisplay string  `json:"timestamp_display"`
	OCRText          string  `json:"ocr_text"`
	VisionText       string  `json:"vision_text,omitempty"`
	VisionSkipped    bool    `json:"vision_skipped"`
}

// Options controls which capabilities run and the vision-skip heuristic.
type Options struct {
	OCREnabled       bool
	VisionEnabled    bool
	OCRWordThreshold int
}

// Analyzer runs OCR and vision analysis over a frame sequence.
type Analyzer struct {
	ocr    capability.TextExtractor
	vision capability.VisionDescriber
	opts   Options
	logger *slog.Logger
}

// ProgressFunc receives completed and total frame counts.
type ProgressFunc func(completed, total int)

// NewAnalyzer creates an Analyzer. Either capability may be nil, which
// disables it regardless of Options.
func NewAnalyzer(ocr capability.TextExtractor, vision capability.VisionDescriber, opts Options, logger *slog.Logger) *Analyzer {
	if opts.OCRWordThreshold <= 0 {
		opts.OCRWordThreshold = 25
	}
	if ocr == nil {
		opts.OCREnabled = false
	}
	if vision == nil {
		opts.VisionEnabled = false
	}
	return &Analyzer{
		ocr:    ocr,
		vision: vision,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "slides"),
	}
}

// Analyze processes every frame in order. OCR or vision failures on a
// single frame are logged and leave that field empty; the stage fails only
// on context cancellation.
func (a *Analyzer) Analyze(ctx context.Context, frameList []frames.Frame, onProgress ProgressFunc) ([]Analysis, error) {
	results := make([]Analysis, 0, len(frameList))
	start := time.Now()
	for i, frame := range frameList {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		analysis := a.analyzeOne(ctx, frame)
		results = append(results, analysis)
		if onProgress != nil {
			onProgress(i+1, len(frameList))
		}
	}
	a.logger.Info("slide analysis complete",
		logging.Int("frames", len(results)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, frame frames.Frame) Analysis {
	analysis := Analysis{
		FramePath:        frame.Path,
		Filename:         frame.Filename,
		TimestampSeconds: frame.TimestampSeconds,
		TimestampDisplay: frame.TimestampDisplay,
	}

	if a.opts.OCREnabled {
		text, err := a.ocr.ExtractText(ctx, frame.Path)
		if err != nil {
			a.logger.Warn("ocr failed for frame",
				logging.String("frame", frame.Filename),
				logging.Error(err),
			)
		} else {
			analysis.OCRText = text
		}
	}

	if !a.opts.VisionEnabled {
		return analysis
	}
	if textutil.WordCount(analysis.OCRText) >= a.opts.OCRWordThreshold {
		analysis.VisionSkipped = true
		return analysis
	}

	description, err := a.vision.DescribeImage(ctx, frame.Path, analysis.OCRText)
	if err != nil {
		a.logger.Warn("vision analysis failed for frame",
			logging.String("frame", frame.Filename),
			logging.Error(err),
		)
		return analysis
	}
	analysis.VisionText = description
	return analysis
}

// Summary renders the best available content for a slide, preferring the
// vision description over raw OCR text.
func (s Analysis) Summary() string {
	if s.VisionText != "" {
		return s.VisionText
	}
	return s.OCRText
}
