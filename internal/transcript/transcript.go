// Package transcript renders transcription output into the recording's
// artifact files: plain text, timed JSON, timestamped markdown, and a
// slide-enhanced markdown that interleaves retained slides chronologically.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/capability"
	"lectern/internal/services"
)

const (
	TextFilename     = "transcript.txt"
	JSONFilename     = "transcript.json"
	MarkdownFilename = "transcript.md"
	EnhancedFilename = "transcript_with_slides.md"
)

// Write saves the three base transcript artifacts into dir.
func Write(dir string, tr *capability.Transcription) error {
	if err := os.WriteFile(filepath.Join(dir, TextFilename), []byte(tr.Text), 0o644); err != nil {
		return wrapWrite("write plain transcript", err)
	}

	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrMalformed, "transcript", "write", "encode transcript", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dir, JSONFilename), data, 0o644); err != nil {
		return wrapWrite("write timed transcript", err)
	}

	if err := os.WriteFile(filepath.Join(dir, MarkdownFilename), []byte(renderMarkdown(tr)), 0o644); err != nil {
		return wrapWrite("write markdown transcript", err)
	}
	return nil
}

// Read loads a previously written transcript.json. Used when the
// transcription stage is skipped but later stages need the timed text.
func Read(dir string) (*capability.Transcription, error) {
	data, err := os.ReadFile(filepath.Join(dir, JSONFilename))
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "transcript", "read", "read timed transcript", err)
	}
	var tr capability.Transcription
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "transcript", "read", "decode timed transcript", err)
	}
	return &tr, nil
}

func renderMarkdown(tr *capability.Transcription) string {
	var b strings.Builder
	b.WriteString("# Transcript\n\n")
	if len(tr.Segments) == 0 {
		b.WriteString(tr.Text)
		b.WriteString("\n")
		return b.String()
	}
	for _, seg := range tr.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s - %s\n", formatTimestamp(seg.Start), formatTimestamp(seg.End))
		fmt.Fprintf(&b, "[Play](video.mp4#t=%d)\n\n", int(seg.Start))
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func wrapWrite(message string, err error) error {
	return services.Wrap(services.ErrTransient, "transcript", "write", message, err)
}
