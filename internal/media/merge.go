package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lectern/internal/logging"
	"lectern/internal/services"
)

// MergeSegments concatenates sequentially numbered segment files into a
// single container using ffmpeg's concat demuxer with stream copy.
func (t *Toolbox) MergeSegments(ctx context.Context, segmentDir string, segmentPaths []string, outputPath string) error {
	if len(segmentPaths) == 0 {
		return services.Wrap(services.ErrValidation, "media", "merge", "no segments to merge", nil)
	}

	listPath := filepath.Join(segmentDir, "concat.txt")
	var list strings.Builder
	for _, path := range segmentPaths {
		// concat demuxer quoting: single quotes, embedded quotes escaped.
		escaped := strings.ReplaceAll(path, "'", `'\''`)
		list.WriteString("file '")
		list.WriteString(escaped)
		list.WriteString("'\n")
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "media", "merge", "write concat list", err)
	}
	defer os.Remove(listPath)

	start := time.Now()
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}
	if _, err := t.runner(ctx, t.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "merge", "ffmpeg concat failed", err)
	}
	if t.logger != nil {
		t.logger.Info("segments merged",
			logging.Int("segments", len(segmentPaths)),
			logging.String("output", outputPath),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}

// ExtractClip copies a time window out of the input without re-encoding.
func (t *Toolbox) ExtractClip(ctx context.Context, inputPath string, startSeconds, durationSeconds float64, outputPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startSeconds),
		"-i", inputPath,
		"-t", formatSeconds(durationSeconds),
		"-c", "copy",
		outputPath,
	}
	if _, err := t.runner(ctx, t.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "extract clip", "ffmpeg clip extraction failed", err)
	}
	return nil
}

// SplitIntoClips cuts the input into fixed-length clips with stream copy,
// writing clip_001.mp4, clip_002.mp4 and so on under outputDir. A clip that
// fails to extract is logged and skipped; the remaining windows still run.
func (t *Toolbox) SplitIntoClips(ctx context.Context, inputPath string, clipDurationSeconds, totalDurationSeconds float64, outputDir string) ([]string, error) {
	if clipDurationSeconds <= 0 {
		return nil, services.Wrap(services.ErrValidation, "media", "split", "clip duration must be positive", nil)
	}
	if totalDurationSeconds <= 0 {
		return nil, services.Wrap(services.ErrValidation, "media", "split", "unknown input duration", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "media", "split", "create clip directory", err)
	}

	numClips := int(totalDurationSeconds/clipDurationSeconds) + 1
	clips := make([]string, 0, numClips)
	for i := 0; i < numClips; i++ {
		startSeconds := float64(i) * clipDurationSeconds
		if startSeconds >= totalDurationSeconds {
			break
		}
		outputPath := filepath.Join(outputDir, fmt.Sprintf("clip_%03d.mp4", i+1))
		if err := t.ExtractClip(ctx, inputPath, startSeconds, clipDurationSeconds, outputPath); err != nil {
			if t.logger != nil {
				t.logger.Warn("clip extraction failed",
					logging.Int("clip", i+1),
					logging.String("start", formatSeconds(startSeconds)),
					logging.Error(err),
				)
			}
			continue
		}
		clips = append(clips, outputPath)
	}
	if len(clips) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "media", "split", "no clips extracted", nil)
	}
	if t.logger != nil {
		t.logger.Info("input split into clips",
			logging.Int("clips", len(clips)),
			logging.String("output_dir", outputDir),
		)
	}
	return clips, nil
}

// ExtractFrame writes one high-quality still image at the given timestamp.
func (t *Toolbox) ExtractFrame(ctx context.Context, inputPath string, timestampSeconds float64, outputPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(timestampSeconds),
		"-i", inputPath,
		"-frames:v", "1",
		"-q:v", "2",
		outputPath,
	}
	if _, err := t.runner(ctx, t.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "extract frame", fmt.Sprintf("frame at %ss", formatSeconds(timestampSeconds)), err)
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
