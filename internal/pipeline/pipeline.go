// Package pipeline orchestrates the processing stages that turn a captured
// lecture video into study artifacts. The state machine is strictly
// forward: transcription, frame extraction, slide analysis, notes
// generation, then completion, with an error side-state that records which
// stage failed. Completed stages keep their artifacts even when a later
// stage fails.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"lectern/internal/capability"
	"lectern/internal/frames"
	"lectern/internal/logging"
	"lectern/internal/services"
	"lectern/internal/slides"
)

// State identifies the orchestrator's current stage.
type State string

const (
	StateNotStarted       State = "not_started"
	StateTranscribing     State = "transcribing"
	StateExtractingFrames State = "extracting_frames"
	StateAnalyzingSlides  State = "analyzing_slides"
	StateGeneratingNotes  State = "generating_notes"
	StateComplete         State = "complete"
	StateError            State = "error"
)

// stateOrder enforces forward-only transitions.
var stateOrder = map[State]int{
	StateNotStarted:       0,
	StateTranscribing:     1,
	StateExtractingFrames: 2,
	StateAnalyzingSlides:  3,
	StateGeneratingNotes:  4,
	StateComplete:         5,
}

// progressBands maps each running state to its share of overall progress.
var progressBands = map[State][2]float64{
	StateTranscribing:     {0, 40},
	StateExtractingFrames: {40, 60},
	StateAnalyzingSlides:  {60, 70},
	StateGeneratingNotes:  {70, 100},
}

// StageProgress maps a stage-internal fraction (0..1) into the stage's
// overall progress band.
func StageProgress(state State, fraction float64) float64 {
	band, ok := progressBands[state]
	if !ok {
		if state == StateComplete {
			return 100
		}
		return 0
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return band[0] + fraction*(band[1]-band[0])
}

// ProgressFunc receives state changes and progress updates. Implementations
// must be fast and non-blocking; they run on the pipeline goroutine.
type ProgressFunc func(state State, percent float64, message string)

// AudioExtractor produces the mono 16 kHz working audio file for transcription.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// FrameExtractor runs the frame-extraction stage.
type FrameExtractor interface {
	Extract(ctx context.Context, videoPath string, duration float64, slidesDir string, onProgress frames.ProgressFunc) ([]frames.Frame, error)
}

// SlideAnalyzer runs the slide-analysis stage.
type SlideAnalyzer interface {
	Analyze(ctx context.Context, frameList []frames.Frame, onProgress slides.ProgressFunc) ([]slides.Analysis, error)
}

// NotesGenerator assembles the generation context and writes section artifacts.
type NotesGenerator interface {
	BuildContext(transcriptText string, analyses []slides.Analysis) string
	Generate(ctx context.Context, contextText string, dir string) (map[string]string, error)
}

// DurationProber reports a video's duration in seconds.
type DurationProber func(ctx context.Context, videoPath string) (float64, error)

// Components bundles the stage implementations the orchestrator drives.
type Components struct {
	Audio       AudioExtractor
	Transcriber capability.Transcriber
	Frames      FrameExtractor
	Slides      SlideAnalyzer
	Notes       NotesGenerator
	Probe       DurationProber
}

// Metadata names the models recorded in the recording manifest.
type Metadata struct {
	WhisperModel string
	NotesModel   string
	VisionModel  string
}

// Request describes one processing run. Skip flags are honored only when
// the stage's primary artifact already exists on disk.
type Request struct {
	VideoPath         string
	Title             string
	SkipTranscription bool
	SkipFrames        bool
	SkipSlides        bool
	SkipNotes         bool
}

// Result reports the run outcome and produced artifact paths.
type Result struct {
	Title        string            `json:"title"`
	RecordingDir string            `json:"recording_dir"`
	VideoPath    string            `json:"video_path"`
	State        State             `json:"state"`
	FailedStage  State             `json:"failed_stage,omitempty"`
	FrameCount   int               `json:"frame_count"`
	SlideCount   int               `json:"slide_count"`
	Artifacts    map[string]string `json:"artifacts"`
}

// Orchestrator runs processing requests one at a time.
type Orchestrator struct {
	outputDir string
	comps     Components
	meta      Metadata
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	failedStage State
}

// New creates an Orchestrator writing recordings under outputDir.
func New(outputDir string, comps Components, meta Metadata, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		outputDir: outputDir,
		comps:     comps,
		meta:      meta,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		state:     StateNotStarted,
	}
}

// State returns the current state and, when in error, the stage that failed.
func (o *Orchestrator) State() (State, State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.failedStage
}

func (o *Orchestrator) advance(to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateError {
		return services.Wrap(services.ErrValidation, "pipeline", "transition", "pipeline already failed", nil)
	}
	if stateOrder[to] <= stateOrder[o.state] {
		return services.Wrap(services.ErrValidation, "pipeline", "transition",
			fmt.Sprintf("invalid transition %s to %s", o.state, to), nil)
	}
	o.state = to
	return nil
}

func (o *Orchestrator) fail(stage State, err error) error {
	o.mu.Lock()
	o.state = StateError
	o.failedStage = stage
	o.mu.Unlock()
	o.logger.Error("stage failed",
		logging.String("stage", string(stage)),
		logging.Error(err),
	)
	return err
}
