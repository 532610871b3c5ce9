package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("file should not exist")
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Frames.SceneThreshold != defaultSceneThreshold {
		t.Fatalf("scene threshold = %v, want %v", cfg.Frames.SceneThreshold, defaultSceneThreshold)
	}
	if cfg.Notes.OllamaHost != defaultOllamaHost {
		t.Fatalf("ollama host = %q", cfg.Notes.OllamaHost)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
output_dir = "` + filepath.Join(dir, "out") + `"

[frames]
scene_threshold = 0.3
max_frames = 100

[notes]
ollama_host = "http://ollama.internal:11434/"
sections = ["Summary", "summary", "  "]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("file should exist")
	}
	if cfg.Frames.SceneThreshold != 0.3 {
		t.Fatalf("scene threshold = %v", cfg.Frames.SceneThreshold)
	}
	if cfg.Frames.MaxFrames != 100 {
		t.Fatalf("max frames = %d", cfg.Frames.MaxFrames)
	}
	if cfg.Notes.OllamaHost != "http://ollama.internal:11434" {
		t.Fatalf("host should drop trailing slash, got %q", cfg.Notes.OllamaHost)
	}
	if len(cfg.Notes.Sections) != 1 || cfg.Notes.Sections[0] != "summary" {
		t.Fatalf("sections should dedup and lowercase, got %v", cfg.Notes.Sections)
	}
}

func TestValidateRejectsBadSceneThreshold(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Frames.SceneThreshold = 1.5
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "scene_threshold") {
		t.Fatalf("expected scene_threshold error, got %v", err)
	}
}

func TestValidateRejectsBadOllamaHost(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Notes.OllamaHost = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid ollama host")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[download]") {
		t.Fatal("sample missing download section")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/lectures")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "lectures") {
		t.Fatalf("expand = %q", got)
	}
}
