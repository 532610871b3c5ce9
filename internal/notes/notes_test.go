package notes

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"lectern/internal/slides"
)

type stubGenerator struct {
	sections map[string]string
	err      error
	gotNames []string
}

func (s *stubGenerator) GenerateSections(ctx context.Context, contextText string, names []string) (map[string]string, error) {
	s.gotNames = names
	return s.sections, s.err
}

func TestGenerateWritesAllSections(t *testing.T) {
	dir := t.TempDir()
	backend := &stubGenerator{sections: map[string]string{
		"lecture_notes": "# Notes\n\n- point",
		"summary":       "A short summary.",
		"qa_cards":      "Q: what?\nA: that.",
	}}
	g := NewGenerator(backend, Options{}, nil)

	paths, err := g.Generate(context.Background(), "some context", dir)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(paths))
	}
	data, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "A short summary.") {
		t.Errorf("unexpected summary content: %s", data)
	}
	if len(backend.gotNames) != 3 || backend.gotNames[0] != "lecture_notes" {
		t.Errorf("unexpected requested sections: %v", backend.gotNames)
	}
}

func TestGenerateWritesPlaceholderForMissingSection(t *testing.T) {
	dir := t.TempDir()
	backend := &stubGenerator{sections: map[string]string{
		"lecture_notes": "# Notes",
	}}
	g := NewGenerator(backend, Options{Sections: []string{"lecture_notes", "summary"}}, nil)

	paths, err := g.Generate(context.Background(), "ctx", dir)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, err := os.ReadFile(paths["summary"])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "re-run the notes stage") {
		t.Errorf("expected placeholder for missing section, got: %s", data)
	}
}

func TestGeneratePropagatesBackendError(t *testing.T) {
	backend := &stubGenerator{err: errors.New("model offline")}
	g := NewGenerator(backend, Options{}, nil)
	if _, err := g.Generate(context.Background(), "ctx", t.TempDir()); err == nil {
		t.Fatal("expected error from backend")
	}
}

func TestBuildContextDeduplicatesSlides(t *testing.T) {
	g := NewGenerator(&stubGenerator{}, Options{ContextLimit: 100000}, nil)
	analyses := []slides.Analysis{
		{TimestampDisplay: "00:00:30", OCRText: "binary search trees support ordered traversal and logarithmic lookup"},
		{TimestampDisplay: "00:01:00", OCRText: "binary search trees support ordered traversal and logarithmic lookup today"},
		{TimestampDisplay: "00:01:30", OCRText: "hash tables trade ordering for constant time expected lookups"},
	}
	got := g.BuildContext("the transcript body", analyses)

	if !strings.Contains(got, "Slide 1 (00:00:30)") {
		t.Errorf("missing first slide:\n%s", got)
	}
	if strings.Contains(got, "Slide 2 (00:01:00)") {
		t.Errorf("near-duplicate slide should be skipped:\n%s", got)
	}
	if !strings.Contains(got, "Slide 3 (00:01:30)") {
		t.Errorf("distinct slide should be kept:\n%s", got)
	}
	if !strings.Contains(got, "## TRANSCRIPT") || !strings.Contains(got, "the transcript body") {
		t.Errorf("missing transcript section:\n%s", got)
	}
}

func TestBuildContextTruncatesToLimit(t *testing.T) {
	g := NewGenerator(&stubGenerator{}, Options{ContextLimit: 50}, nil)
	got := g.BuildContext(strings.Repeat("transcript ", 100), nil)
	if len(got) != 50 {
		t.Errorf("expected context truncated to 50 chars, got %d", len(got))
	}
}

func TestBuildContextTruncatesOnRuneBoundary(t *testing.T) {
	// The limit lands inside the multi-byte rune; truncation must back up
	// to the previous boundary instead of emitting a partial sequence.
	transcript := strings.Repeat("é", 100)
	for limit := 40; limit <= 45; limit++ {
		g := NewGenerator(&stubGenerator{}, Options{ContextLimit: limit}, nil)
		got := g.BuildContext(transcript, nil)
		if !utf8.ValidString(got) {
			t.Errorf("limit %d: truncated context is not valid UTF-8: %q", limit, got)
		}
		if len(got) > limit {
			t.Errorf("limit %d: context length %d exceeds limit", limit, len(got))
		}
	}
}

func TestBuildContextWithoutSlides(t *testing.T) {
	g := NewGenerator(&stubGenerator{}, Options{}, nil)
	got := g.BuildContext("just the transcript", nil)
	if strings.Contains(got, "EXTRACTED SLIDE CONTENT") {
		t.Errorf("unexpected slide section:\n%s", got)
	}
	if !strings.Contains(got, "just the transcript") {
		t.Errorf("missing transcript:\n%s", got)
	}
}
