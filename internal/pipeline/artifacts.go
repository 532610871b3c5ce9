package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lectern/internal/services"
	"lectern/internal/textutil"
)

const (
	VideoFilename    = "video.mp4"
	AudioFilename    = "audio.wav"
	ManifestFilename = "metadata.json"
	IndexFilename    = "index.md"
	SlidesDirName    = "slides"
)

const indexSlideLimit = 10

// RecordingDirName builds the date-prefixed folder name for a recording.
func RecordingDirName(title string) string {
	return time.Now().Format("2006-01-02") + "_" + textutil.SanitizeFileName(title)
}

type manifest struct {
	Title        string            `json:"title"`
	ProcessedAt  string            `json:"processed_at"`
	WhisperModel string            `json:"whisper_model,omitempty"`
	NotesModel   string            `json:"notes_model,omitempty"`
	VisionModel  string            `json:"vision_model,omitempty"`
	FrameCount   int               `json:"frame_count"`
	SlideCount   int               `json:"slide_count"`
	Artifacts    map[string]string `json:"artifacts"`
}

func (o *Orchestrator) writeManifest(dir, title string, result *Result) error {
	m := manifest{
		Title:        title,
		ProcessedAt:  time.Now().UTC().Format(time.RFC3339),
		WhisperModel: o.meta.WhisperModel,
		NotesModel:   o.meta.NotesModel,
		VisionModel:  o.meta.VisionModel,
		FrameCount:   result.FrameCount,
		SlideCount:   result.SlideCount,
		Artifacts:    result.Artifacts,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrMalformed, "pipeline", "manifest", "encode manifest", err)
	}
	data = append(data, '\n')
	path := filepath.Join(dir, ManifestFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "manifest", "write manifest", err)
	}
	result.Artifacts["metadata"] = path
	return nil
}

// writeIndex renders the study-materials index for the recording folder,
// with a gallery of the first few slides.
func (o *Orchestrator) writeIndex(dir, title string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Processed:** %s\n\n---\n\n", time.Now().Format("2006-01-02 15:04"))
	b.WriteString("## Media\n\n")
	b.WriteString("- [Watch Video](video.mp4)\n")
	b.WriteString("- [Transcript](transcript.md)\n\n---\n\n")
	b.WriteString("## Study Materials\n\n")
	b.WriteString("- [Lecture Notes](lecture_notes.md)\n")
	b.WriteString("- [Flashcards](qa_cards.md)\n")
	b.WriteString("- [Summary](summary.md)\n\n---\n\n## Slides\n\n")

	slidePaths, _ := filepath.Glob(filepath.Join(dir, SlidesDirName, "*.png"))
	sort.Strings(slidePaths)
	for i, path := range slidePaths {
		if i >= indexSlideLimit {
			break
		}
		name := filepath.Base(path)
		display := strings.ReplaceAll(strings.TrimSuffix(name, ".png"), "_", ":")
		fmt.Fprintf(&b, "![%s](slides/%s)\n\n", display, name)
	}
	if len(slidePaths) > indexSlideLimit {
		fmt.Fprintf(&b, "\n*...and %d more slides in the slides/ folder*\n", len(slidePaths)-indexSlideLimit)
	}

	if err := os.WriteFile(filepath.Join(dir, IndexFilename), []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "index", "write index", err)
	}
	return nil
}
