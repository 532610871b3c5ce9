package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/capability"
	"lectern/internal/frames"
	"lectern/internal/slides"
)

type stubAudio struct{ calls int }

func (s *stubAudio) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	s.calls++
	return os.WriteFile(audioPath, []byte("pcm"), 0o644)
}

type stubTranscriber struct {
	calls int
	err   error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath string) (*capability.Transcription, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &capability.Transcription{
		Language: "en",
		Text:     "hello lecture",
		Segments: []capability.Segment{{Start: 0, End: 5, Text: "hello lecture"}},
	}, nil
}

type stubFrames struct {
	calls int
	err   error
}

func (s *stubFrames) Extract(ctx context.Context, videoPath string, duration float64, slidesDir string, onProgress frames.ProgressFunc) ([]frames.Frame, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	path := filepath.Join(slidesDir, "00_00_30.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		return nil, err
	}
	if onProgress != nil {
		onProgress(1, 1)
	}
	return []frames.Frame{{
		Path:             path,
		Filename:         "00_00_30.png",
		TimestampSeconds: 30,
		TimestampDisplay: "00:00:30",
	}}, nil
}

type stubSlides struct {
	calls int
	err   error
}

func (s *stubSlides) Analyze(ctx context.Context, frameList []frames.Frame, onProgress slides.ProgressFunc) ([]slides.Analysis, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	analyses := make([]slides.Analysis, 0, len(frameList))
	for _, f := range frameList {
		analyses = append(analyses, slides.Analysis{
			FramePath:        f.Path,
			Filename:         f.Filename,
			TimestampSeconds: f.TimestampSeconds,
			TimestampDisplay: f.TimestampDisplay,
			OCRText:          "slide text",
		})
	}
	return analyses, nil
}

type stubNotes struct {
	calls int
	err   error
}

func (s *stubNotes) BuildContext(transcriptText string, analyses []slides.Analysis) string {
	return transcriptText
}

func (s *stubNotes) Generate(ctx context.Context, contextText string, dir string) (map[string]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	paths := make(map[string]string)
	for _, name := range []string{"lecture_notes", "summary", "qa_cards"} {
		path := filepath.Join(dir, name+".md")
		if err := os.WriteFile(path, []byte("# "+name), 0o644); err != nil {
			return nil, err
		}
		paths[name] = path
	}
	return paths, nil
}

type testComponents struct {
	audio       *stubAudio
	transcriber *stubTranscriber
	frames      *stubFrames
	slides      *stubSlides
	notes       *stubNotes
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *testComponents, string, string) {
	t.Helper()
	outputDir := t.TempDir()
	videoPath := filepath.Join(t.TempDir(), "capture.mp4")
	if err := os.WriteFile(videoPath, []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	tc := &testComponents{
		audio:       &stubAudio{},
		transcriber: &stubTranscriber{},
		frames:      &stubFrames{},
		slides:      &stubSlides{},
		notes:       &stubNotes{},
	}
	comps := Components{
		Audio:       tc.audio,
		Transcriber: tc.transcriber,
		Frames:      tc.frames,
		Slides:      tc.slides,
		Notes:       tc.notes,
		Probe: func(ctx context.Context, videoPath string) (float64, error) {
			return 600, nil
		},
	}
	o := New(outputDir, comps, Metadata{WhisperModel: "base", NotesModel: "qwen2.5:7b"}, nil)
	return o, tc, outputDir, videoPath
}

func TestRunCompletesAllStages(t *testing.T) {
	o, tc, _, videoPath := newTestOrchestrator(t)

	var percents []float64
	result, err := o.Run(context.Background(), Request{VideoPath: videoPath, Title: "Test Lecture"},
		func(state State, percent float64, message string) {
			percents = append(percents, percent)
		})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.State != StateComplete {
		t.Errorf("state = %s, want complete", result.State)
	}
	if tc.transcriber.calls != 1 || tc.frames.calls != 1 || tc.slides.calls != 1 || tc.notes.calls != 1 {
		t.Errorf("unexpected stage invocations: %+v %+v %+v %+v",
			tc.transcriber.calls, tc.frames.calls, tc.slides.calls, tc.notes.calls)
	}

	for _, name := range []string{"video.mp4", "transcript.txt", "transcript.json", "transcript.md",
		"transcript_with_slides.md", "slides_metadata.json", "slides_analysis.json",
		"lecture_notes.md", "metadata.json", "index.md"} {
		if _, err := os.Stat(filepath.Join(result.RecordingDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("expected final progress 100, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("progress regressed at %d: %v", i, percents)
		}
	}
}

func TestRunRecordsFailedStageAndKeepsArtifacts(t *testing.T) {
	o, tc, _, videoPath := newTestOrchestrator(t)
	tc.slides.err = errors.New("ocr backend offline")

	result, err := o.Run(context.Background(), Request{VideoPath: videoPath, Title: "Broken"}, nil)
	if err == nil {
		t.Fatal("expected stage failure")
	}
	if result.State != StateError || result.FailedStage != StateAnalyzingSlides {
		t.Errorf("state=%s failed=%s, want error at slide analysis", result.State, result.FailedStage)
	}
	state, failed := o.State()
	if state != StateError || failed != StateAnalyzingSlides {
		t.Errorf("orchestrator state=%s failed=%s", state, failed)
	}
	// Artifacts from completed stages survive.
	for _, name := range []string{"transcript.txt", "slides_metadata.json"} {
		if _, statErr := os.Stat(filepath.Join(result.RecordingDir, name)); statErr != nil {
			t.Errorf("missing retained artifact %s: %v", name, statErr)
		}
	}
	if tc.notes.calls != 0 {
		t.Error("notes stage must not run after a failure")
	}
}

func TestRunHonorsSkipFlagsWithPriorArtifacts(t *testing.T) {
	o, tc, _, videoPath := newTestOrchestrator(t)
	if _, err := o.Run(context.Background(), Request{VideoPath: videoPath, Title: "Repeat"}, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}

	result, err := o.Run(context.Background(), Request{
		VideoPath:         videoPath,
		Title:             "Repeat",
		SkipTranscription: true,
		SkipFrames:        true,
		SkipSlides:        true,
		SkipNotes:         true,
	}, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.State != StateComplete {
		t.Errorf("state = %s, want complete", result.State)
	}
	if tc.transcriber.calls != 1 || tc.frames.calls != 1 || tc.slides.calls != 1 || tc.notes.calls != 1 {
		t.Errorf("skipped stages re-ran: transcriber=%d frames=%d slides=%d notes=%d",
			tc.transcriber.calls, tc.frames.calls, tc.slides.calls, tc.notes.calls)
	}
}

func TestRunRefusesSkipWithoutPriorArtifacts(t *testing.T) {
	o, tc, _, videoPath := newTestOrchestrator(t)

	result, err := o.Run(context.Background(), Request{
		VideoPath:         videoPath,
		Title:             "Fresh",
		SkipTranscription: true,
		SkipFrames:        true,
		SkipSlides:        true,
		SkipNotes:         true,
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.State != StateComplete {
		t.Errorf("state = %s, want complete", result.State)
	}
	if tc.transcriber.calls != 1 || tc.frames.calls != 1 || tc.slides.calls != 1 || tc.notes.calls != 1 {
		t.Errorf("skip without artifacts must run stages: transcriber=%d frames=%d slides=%d notes=%d",
			tc.transcriber.calls, tc.frames.calls, tc.slides.calls, tc.notes.calls)
	}
}

func TestRunRejectsMissingVideo(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	if _, err := o.Run(context.Background(), Request{VideoPath: "/nonexistent.mp4", Title: "X"}, nil); err == nil {
		t.Fatal("expected error for missing video")
	}
}

func TestStageProgressBands(t *testing.T) {
	cases := []struct {
		state    State
		fraction float64
		want     float64
	}{
		{StateTranscribing, 0, 0},
		{StateTranscribing, 1, 40},
		{StateExtractingFrames, 0.5, 50},
		{StateAnalyzingSlides, 1, 70},
		{StateGeneratingNotes, 0.5, 85},
		{StateComplete, 0, 100},
	}
	for _, tc := range cases {
		if got := StageProgress(tc.state, tc.fraction); got != tc.want {
			t.Errorf("StageProgress(%s, %v) = %v, want %v", tc.state, tc.fraction, got, tc.want)
		}
	}
}
