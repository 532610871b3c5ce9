package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lectern/internal/capability"
	"lectern/internal/slides"
)

const ocrExcerptLimit = 500

// WriteEnhanced produces transcript_with_slides.md: the timed transcript
// with each retained slide embedded at its chronological position, carrying
// its OCR excerpt and vision description when available.
func WriteEnhanced(dir string, tr *capability.Transcription, analyses []slides.Analysis) error {
	ordered := make([]slides.Analysis, len(analyses))
	copy(ordered, analyses)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].TimestampSeconds < ordered[j].TimestampSeconds
	})

	var b strings.Builder
	b.WriteString("# Lecture Transcript with Slides\n\n---\n\n")

	next := 0
	for _, seg := range tr.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		for next < len(ordered) && ordered[next].TimestampSeconds <= seg.Start {
			writeSlideSection(&b, ordered[next])
			next++
		}
		fmt.Fprintf(&b, "**[%s]** [Play](video.mp4#t=%d) %s\n\n",
			formatTimestamp(seg.Start), int(seg.Start), text)
	}
	for ; next < len(ordered); next++ {
		writeSlideSection(&b, ordered[next])
	}

	path := filepath.Join(dir, EnhancedFilename)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return wrapWrite("write enhanced transcript", err)
	}
	return nil
}

func writeSlideSection(b *strings.Builder, analysis slides.Analysis) {
	display := analysis.TimestampDisplay
	if display == "" {
		display = formatTimestamp(analysis.TimestampSeconds)
	}
	fmt.Fprintf(b, "### Slide at %s\n\n", display)
	fmt.Fprintf(b, "![Slide at %s](slides/%s)\n\n", display, analysis.Filename)

	if ocr := strings.TrimSpace(analysis.OCRText); ocr != "" {
		if len(ocr) > ocrExcerptLimit {
			ocr = ocr[:ocrExcerptLimit]
		}
		fmt.Fprintf(b, "**Text on slide:**\n> %s\n\n", ocr)
	}
	if vision := strings.TrimSpace(analysis.VisionText); vision != "" {
		fmt.Fprintf(b, "**Slide analysis:**\n%s\n\n", vision)
	}
	b.WriteString("---\n\n")
}
