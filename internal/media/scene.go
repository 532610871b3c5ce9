package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lectern/internal/logging"
	"lectern/internal/services"
)

// DetectSceneChanges runs ffmpeg's scene-change filter over the input and
// returns the timestamps (seconds) of frames whose scene score exceeds the
// threshold. The showinfo filter prints per-frame data on stderr.
func (t *Toolbox) DetectSceneChanges(ctx context.Context, inputPath string, threshold float64) ([]float64, error) {
	filter := fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(threshold, 'f', -1, 64))
	args := []string{
		"-hide_banner",
		"-i", inputPath,
		"-vf", filter,
		"-f", "null",
		"-",
	}
	stderr, err := t.runner(ctx, t.ffmpeg, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "frames", "scene detection", "ffmpeg scene filter failed", err)
	}

	timestamps := parseShowinfoTimestamps(stderr)
	if t.logger != nil {
		t.logger.Info("scene changes detected",
			logging.Int("count", len(timestamps)),
			logging.Float64("threshold", threshold),
		)
	}
	return timestamps, nil
}

// parseShowinfoTimestamps pulls pts_time values out of showinfo stderr
// lines. Unparseable entries are skipped.
func parseShowinfoTimestamps(stderr string) []float64 {
	var timestamps []float64
	for _, line := range strings.Split(stderr, "\n") {
		idx := strings.Index(line, "pts_time:")
		if idx < 0 {
			continue
		}
		rest := line[idx+len("pts_time:"):]
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		value, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		timestamps = append(timestamps, value)
	}
	return timestamps
}
