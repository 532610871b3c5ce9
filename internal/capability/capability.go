// Package capability defines the interfaces the pipeline uses to talk to
// external speech, OCR, and language-model tooling. Implementations live in
// subpackages; the pipeline accepts the interfaces so tests can substitute
// stubs.
package capability

import "context"

// Segment is a timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the full output of a speech-to-text run.
type Transcription struct {
	Language string    `json:"language"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Transcriber converts an audio file into a timed transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Transcription, error)
}

// TextExtractor pulls visible text out of an image.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// VisionDescriber produces a prose description of an image. The OCR hint,
// when non-empty, is included in the prompt so the model can correct or
// extend it.
type VisionDescriber interface {
	DescribeImage(ctx context.Context, imagePath, ocrHint string) (string, error)
}

// SectionGenerator produces named study-material sections from assembled
// lecture context. Sections the model fails to produce are absent from the
// returned map; callers decide how to fill the gap.
type SectionGenerator interface {
	GenerateSections(ctx context.Context, contextText string, names []string) (map[string]string, error)
}
