package frames

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"lectern/internal/fileutil"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// ProgressFunc receives completed and total step counts for the stage.
type ProgressFunc func(completed, total int)

// Extract runs the full stage: scene detection, interval grid, merge,
// still extraction, and deduplication. Frames land in slidesDir named by
// timestamp. Individual frame-extraction failures are logged and skipped;
// the stage fails only when nothing could be extracted at all.
func (e *Extractor) Extract(ctx context.Context, videoPath string, duration float64, slidesDir string, onProgress ProgressFunc) ([]Frame, error) {
	if err := os.MkdirAll(slidesDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "frames", "prepare directory", "create slides directory", err)
	}

	sceneTS, err := e.toolbox.DetectSceneChanges(ctx, videoPath, e.opts.SceneThreshold)
	if err != nil {
		return nil, err
	}
	intervalTS := e.IntervalTimestamps(duration)
	timestamps := e.MergeTimestamps(sceneTS, intervalTS, duration)

	start := time.Now()
	frames := make([]Frame, 0, len(timestamps))
	for i, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTransient, "frames", "extract", "extraction cancelled", err)
		}
		name := FormatTimestampFilename(ts) + ".png"
		path := filepath.Join(slidesDir, name)
		if err := e.toolbox.ExtractFrame(ctx, videoPath, ts, path); err != nil || !fileutil.Exists(path) {
			if e.logger != nil {
				e.logger.Warn("frame extraction failed, skipping timestamp",
					logging.Float64("timestamp", ts),
					logging.Error(err),
				)
			}
			continue
		}
		frames = append(frames, Frame{
			Path:             path,
			Filename:         name,
			TimestampSeconds: ts,
			TimestampDisplay: FormatTimestampDisplay(ts),
		})
		if onProgress != nil {
			onProgress(i+1, len(timestamps))
		}
	}

	if len(frames) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "frames", "extract", "no frames could be extracted", nil)
	}

	deduped := e.Deduplicate(frames)
	if e.logger != nil {
		e.logger.Info("frame extraction complete",
			logging.Int("candidates", len(frames)),
			logging.Int("retained", len(deduped)),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	return deduped, nil
}
