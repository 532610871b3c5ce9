package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Download contains configuration for segment fetching and assembly.
type Download struct {
	RequestTimeout    int     `toml:"request_timeout"`
	RetryAttempts     int     `toml:"retry_attempts"`
	RetryBaseSeconds  int     `toml:"retry_base_seconds"`
	RetryMaxSeconds   int     `toml:"retry_max_seconds"`
	MinSegmentBytes   int64   `toml:"min_segment_bytes"`
	ChunkSeconds      float64 `toml:"chunk_seconds"`
	ClipSeconds       float64 `toml:"clip_seconds"`
	EstimateHeadroom  int     `toml:"estimate_headroom"`
	EstimateFallback  int     `toml:"estimate_fallback"`
	KeepSegments      bool    `toml:"keep_segments"`
}

// Transcription contains configuration for speech-to-text.
type Transcription struct {
	Binary   string `toml:"binary"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

// Frames contains configuration for slide frame extraction.
type Frames struct {
	SceneThreshold float64 `toml:"scene_threshold"`
	MinInterval    float64 `toml:"min_interval"`
	FixedInterval  float64 `toml:"fixed_interval"`
	MaxFrames      int     `toml:"max_frames"`
	HashThreshold  int     `toml:"hash_threshold"`
	SkipIntro      float64 `toml:"skip_intro"`
	SkipOutro      float64 `toml:"skip_outro"`
}

// Slides contains configuration for slide content analysis.
type Slides struct {
	OCREnabled       bool   `toml:"ocr_enabled"`
	OCRBinary        string `toml:"ocr_binary"`
	OCRWordThreshold int    `toml:"ocr_word_threshold"`
	VisionEnabled    bool   `toml:"vision_enabled"`
	VisionModel      string `toml:"vision_model"`
}

// Notes contains configuration for study note generation.
type Notes struct {
	OllamaHost     string   `toml:"ollama_host"`
	Model          string   `toml:"model"`
	ContextLimit   int      `toml:"context_limit"`
	Sections       []string `toml:"sections"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Jobs contains configuration for the in-process job registry.
type Jobs struct {
	RetentionMinutes int `toml:"retention_minutes"`
	QueueCapacity    int `toml:"queue_capacity"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Lectern.
//
// Configuration sections by subsystem:
//   - Paths: output/work/log directories and the API bind address
//   - Download: segment fetch timeouts, retries, and validity limits
//   - Transcription: whisper binary, model, and language
//   - Frames: scene detection and sampling thresholds
//   - Slides: OCR and vision analysis settings
//   - Notes: ollama connection and section layout
//   - Jobs: registry retention and queue sizing
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Download      Download      `toml:"download"`
	Transcription Transcription `toml:"transcription"`
	Frames        Frames        `toml:"frames"`
	Slides        Slides        `toml:"slides"`
	Notes         Notes         `toml:"notes"`
	Jobs          Jobs          `toml:"jobs"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lectern/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lectern.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for media assembly.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// WhisperBinary returns the transcription executable name.
func (c *Config) WhisperBinary() string {
	if strings.TrimSpace(c.Transcription.Binary) != "" {
		return c.Transcription.Binary
	}
	return "whisper"
}

// OCRBinary returns the OCR executable name.
func (c *Config) OCRBinary() string {
	if strings.TrimSpace(c.Slides.OCRBinary) != "" {
		return c.Slides.OCRBinary
	}
	return "tesseract"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// HistoryDBPath returns the sqlite database location under the work directory.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.WorkDir, "lectern.db")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
