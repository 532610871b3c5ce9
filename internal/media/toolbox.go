// Package media wraps the ffmpeg invocations the pipeline needs: segment
// concatenation, clip extraction, still-frame extraction, and scene-change
// detection.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"lectern/internal/logging"
)

// CommandRunner abstracts ffmpeg execution for tests. It returns the
// process's stderr, which ffmpeg uses for diagnostics and showinfo output.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Toolbox executes ffmpeg with a fixed binary and shared logging.
type Toolbox struct {
	ffmpeg string
	logger *slog.Logger
	runner CommandRunner
}

// NewToolbox creates a Toolbox. A nil logger disables logging.
func NewToolbox(ffmpegBinary string, logger *slog.Logger) *Toolbox {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	t := &Toolbox{
		ffmpeg: ffmpegBinary,
		logger: logging.NewComponentLogger(logger, "media"),
	}
	t.runner = runCommand
	return t
}

// SetRunner overrides process execution. Tests only.
func (t *Toolbox) SetRunner(runner CommandRunner) {
	if runner != nil {
		t.runner = runner
	}
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	output := stderr.String()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, stderrTail(output))
	}
	return output, nil
}

func stderrTail(output string) string {
	trimmed := strings.TrimSpace(output)
	if len(trimmed) > 512 {
		trimmed = trimmed[len(trimmed)-512:]
	}
	return trimmed
}
