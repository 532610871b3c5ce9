// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Ollama is unset so preflight checks fail fast without network access.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "lectures")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Notes.OllamaHost = ""
	cfg.Slides.VisionEnabled = false

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithOllamaHost points the notes and vision backends at the given host.
func WithOllamaHost(host string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notes.OllamaHost = host
	}
}

// WithQueueCapacity overrides the processing queue depth.
func WithQueueCapacity(capacity int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Jobs.QueueCapacity = capacity
	}
}
