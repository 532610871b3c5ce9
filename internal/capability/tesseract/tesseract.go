// Package tesseract shells out to the tesseract CLI for slide text
// extraction.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"lectern/internal/capability"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// Extractor runs tesseract over slide images.
type Extractor struct {
	binary string
	logger *slog.Logger
	runner CommandRunner
}

// CommandRunner abstracts process execution for tests. It returns the
// command's stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

// New creates an Extractor. A nil logger disables logging.
func New(binary string, logger *slog.Logger) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = "tesseract"
	}
	e := &Extractor{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "tesseract"),
	}
	e.runner = runCommand
	return e
}

var _ capability.TextExtractor = (*Extractor)(nil)

// SetRunner overrides process execution. Tests only.
func (e *Extractor) SetRunner(runner CommandRunner) {
	if runner != nil {
		e.runner = runner
	}
}

// ExtractText OCRs the image and returns whitespace-normalized text.
func (e *Extractor) ExtractText(ctx context.Context, imagePath string) (string, error) {
	out, err := e.runner(ctx, e.binary, imagePath, "stdout")
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "slides", "ocr", "tesseract invocation failed", err)
	}
	text := normalize(out)
	if e.logger != nil {
		e.logger.Debug("ocr complete",
			logging.String("image", imagePath),
			logging.Int("words", len(strings.Fields(text))),
		)
	}
	return text, nil
}

func normalize(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, strings.Join(strings.Fields(line), " "))
	}
	return strings.Join(kept, "\n")
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 512 {
			detail = detail[len(detail)-512:]
		}
		return "", fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return stdout.String(), nil
}
