// Package whisper shells out to the whisper CLI for transcription and owns
// the ffmpeg audio-extraction step that feeds it.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"lectern/internal/capability"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// Options configures the whisper invocation.
type Options struct {
	Binary   string
	Model    string
	Language string
	// WorkDir receives the JSON output files; defaults to the audio file's
	// directory when empty.
	WorkDir string
}

// Transcriber runs the whisper CLI against extracted audio.
type Transcriber struct {
	opts   Options
	logger *slog.Logger
	runner CommandRunner
}

// CommandRunner abstracts process execution for tests.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// New creates a Transcriber. A nil logger disables logging.
func New(opts Options, logger *slog.Logger) *Transcriber {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = "whisper"
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = "base"
	}
	t := &Transcriber{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "whisper"),
	}
	t.runner = t.runCommand
	return t
}

var _ capability.Transcriber = (*Transcriber)(nil)

// SetRunner overrides process execution. Tests only.
func (t *Transcriber) SetRunner(runner CommandRunner) {
	if runner != nil {
		t.runner = runner
	}
}

// ExtractAudio writes a mono 16 kHz WAV copy of the video's audio track,
// the input format whisper handles best.
func (t *Transcriber) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	start := time.Now()
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		audioPath,
	}
	if err := t.runner(ctx, "ffmpeg", args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcription", "extract audio", "ffmpeg audio extraction failed", err)
	}
	if t.logger != nil {
		t.logger.Debug("audio extracted",
			logging.String("audio_path", audioPath),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}

// Transcribe runs whisper over the audio file and parses its JSON output.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (*capability.Transcription, error) {
	outputDir := strings.TrimSpace(t.opts.WorkDir)
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcription", "prepare output", "create whisper output directory", err)
	}

	args := []string{
		audioPath,
		"--model", t.opts.Model,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--verbose", "False",
	}
	if lang := strings.TrimSpace(t.opts.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	start := time.Now()
	if err := t.runner(ctx, t.opts.Binary, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "run whisper", "whisper invocation failed", err)
	}

	jsonPath := filepath.Join(outputDir, strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))+".json")
	transcription, err := parseOutput(jsonPath)
	if err != nil {
		return nil, err
	}
	if t.logger != nil {
		t.logger.Info("transcription complete",
			logging.Int("segments", len(transcription.Segments)),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	return transcription, nil
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperPayload struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

func parseOutput(path string) (*capability.Transcription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "read output", "whisper produced no JSON output", err)
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "transcription", "parse output", "whisper JSON output is malformed", err)
	}
	segments := make([]capability.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, capability.Segment{Start: seg.Start, End: seg.End, Text: text})
	}
	return &capability.Transcription{
		Language: payload.Language,
		Text:     strings.TrimSpace(payload.Text),
		Segments: segments,
	}, nil
}

func (t *Transcriber) runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 512 {
			detail = detail[len(detail)-512:]
		}
		return fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return nil
}
