package slides

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/frames"
)

type stubOCR struct {
	text string
	err  error
}

func (s stubOCR) ExtractText(ctx context.Context, imagePath string) (string, error) {
	return s.text, s.err
}

type stubVision struct {
	description string
	err         error
	calls       int
}

func (s *stubVision) DescribeImage(ctx context.Context, imagePath, ocrHint string) (string, error) {
	s.calls++
	return s.description, s.err
}

func testFrames() []frames.Frame {
	return []frames.Frame{
		{Path: "/tmp/00_00_30.png", Filename: "00_00_30.png", TimestampSeconds: 30, TimestampDisplay: "00:00:30"},
	}
}

func TestAnalyzeSkipsVisionWhenOCRSufficient(t *testing.T) {
	dense := strings.Repeat("word ", 30)
	vision := &stubVision{description: "a slide"}
	a := NewAnalyzer(stubOCR{text: dense}, vision, Options{OCREnabled: true, VisionEnabled: true, OCRWordThreshold: 25}, nil)

	results, err := a.Analyze(context.Background(), testFrames(), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].VisionSkipped {
		t.Error("expected vision to be skipped for text-dense slide")
	}
	if vision.calls != 0 {
		t.Errorf("expected no vision calls, got %d", vision.calls)
	}
	if results[0].VisionText != "" {
		t.Error("expected empty vision text when skipped")
	}
}

func TestAnalyzeInvokesVisionForSparseOCR(t *testing.T) {
	vision := &stubVision{description: "diagram of a binary tree"}
	a := NewAnalyzer(stubOCR{text: "short text"}, vision, Options{OCREnabled: true, VisionEnabled: true, OCRWordThreshold: 25}, nil)

	results, err := a.Analyze(context.Background(), testFrames(), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if results[0].VisionSkipped {
		t.Error("expected vision to run for sparse OCR")
	}
	if vision.calls != 1 {
		t.Errorf("expected one vision call, got %d", vision.calls)
	}
	if results[0].VisionText != "diagram of a binary tree" {
		t.Errorf("unexpected vision text %q", results[0].VisionText)
	}
}

func TestAnalyzeToleratesPerFrameFailures(t *testing.T) {
	vision := &stubVision{err: errors.New("model offline")}
	a := NewAnalyzer(stubOCR{err: errors.New("binary missing")}, vision, Options{OCREnabled: true, VisionEnabled: true}, nil)

	results, err := a.Analyze(context.Background(), testFrames(), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if results[0].OCRText != "" || results[0].VisionText != "" {
		t.Error("expected empty fields after capability failures")
	}
	if results[0].VisionSkipped {
		t.Error("a failed vision call is not a skip")
	}
}

func TestAnalyzeDisablesVisionWithoutCapability(t *testing.T) {
	a := NewAnalyzer(stubOCR{text: "short"}, nil, Options{OCREnabled: true, VisionEnabled: true}, nil)
	results, err := a.Analyze(context.Background(), testFrames(), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if results[0].VisionText != "" || results[0].VisionSkipped {
		t.Error("expected vision disabled when capability is nil")
	}
}

func TestSummaryPrefersVision(t *testing.T) {
	s := Analysis{OCRText: "raw text", VisionText: "description"}
	if got := s.Summary(); got != "description" {
		t.Errorf("Summary() = %q, want vision text", got)
	}
	s.VisionText = ""
	if got := s.Summary(); got != "raw text" {
		t.Errorf("Summary() = %q, want ocr text", got)
	}
}

func TestWriteAndReadAnalysis(t *testing.T) {
	dir := t.TempDir()
	analyses := []Analysis{
		{Filename: "00_00_30.png", TimestampSeconds: 30, OCRText: "hello", VisionSkipped: true},
	}
	path, err := WriteAnalysis(dir, analyses)
	if err != nil {
		t.Fatalf("WriteAnalysis: %v", err)
	}
	if filepath.Base(path) != "slides_analysis.json" {
		t.Errorf("unexpected artifact path %s", path)
	}

	got, err := ReadAnalysis(dir)
	if err != nil {
		t.Fatalf("ReadAnalysis: %v", err)
	}
	if len(got) != 1 || got[0].OCRText != "hello" || !got[0].VisionSkipped {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}
