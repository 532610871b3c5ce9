package notes

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"lectern/internal/slides"
	"lectern/internal/textutil"
)

const (
	maxContextSlides   = 40
	slideExcerptLimit  = 600
	carryForwardLimit  = 300
	buildingHintLimit  = 100
	duplicateThreshold = 0.7
)

// BuildContext assembles the generation context: deduplicated slide
// excerpts in chronological order, then the transcript, truncated to the
// configured limit. Slides whose OCR text overlaps a previous slide by
// more than 70% are treated as continuations and skipped.
func (g *Generator) BuildContext(transcriptText string, analyses []slides.Analysis) string {
	var parts []string

	if len(analyses) > 0 {
		parts = append(parts, "## EXTRACTED SLIDE CONTENT\n")
		var previous []string

		limit := len(analyses)
		if limit > maxContextSlides {
			limit = maxContextSlides
		}
		for i := 0; i < limit; i++ {
			analysis := analyses[i]
			content := strings.TrimSpace(analysis.Summary())
			if content == "" {
				continue
			}
			if isDuplicateOfAny(content, previous) {
				continue
			}

			parts = append(parts, fmt.Sprintf("### Slide %d (%s)", i+1, analysis.TimestampDisplay))
			if len(previous) > 0 {
				parts = append(parts, "_Building on: "+truncate(previous[len(previous)-1], buildingHintLimit)+"..._")
			}
			parts = append(parts, truncate(content, slideExcerptLimit), "")
			previous = append(previous, truncate(content, carryForwardLimit))
		}
		if len(analyses) > maxContextSlides {
			parts = append(parts, fmt.Sprintf("\n... and %d more slides\n", len(analyses)-maxContextSlides))
		}
		parts = append(parts, "---\n")
	}

	parts = append(parts, "## TRANSCRIPT\n", transcriptText)

	assembled := strings.Join(parts, "\n")
	if len(assembled) > g.opts.ContextLimit {
		assembled = assembled[:g.opts.ContextLimit]
	}
	return assembled
}

func isDuplicateOfAny(content string, previous []string) bool {
	for _, prev := range previous {
		if textutil.WordOverlap(content, prev) > duplicateThreshold {
			return true
		}
	}
	return false
}

// truncate caps s at limit bytes without splitting a multi-byte rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
