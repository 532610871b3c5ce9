package slides

import (
	"encoding/json"
	"os"
	"path/filepath"

	"lectern/internal/frames"
	"lectern/internal/services"
)

const (
	MetadataFilename = "slides_metadata.json"
	AnalysisFilename = "slides_analysis.json"
)

// WriteMetadata records the retained frame list for the recording.
func WriteMetadata(dir string, frameList []frames.Frame) (string, error) {
	return writeJSON(filepath.Join(dir, MetadataFilename), frameList)
}

// WriteAnalysis records the per-slide analysis results.
func WriteAnalysis(dir string, analyses []Analysis) (string, error) {
	return writeJSON(filepath.Join(dir, AnalysisFilename), analyses)
}

// ReadMetadata loads a previously written slides_metadata.json. Used when
// the frame-extraction stage is skipped but later stages need the frame list.
func ReadMetadata(dir string) ([]frames.Frame, error) {
	path := filepath.Join(dir, MetadataFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "slides", "read metadata", "read slides metadata", err)
	}
	var frameList []frames.Frame
	if err := json.Unmarshal(data, &frameList); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "slides", "read metadata", "decode slides metadata", err)
	}
	return frameList, nil
}

// ReadAnalysis loads a previously written slides_analysis.json. Used when
// the slide-analysis stage is skipped but later stages need its output.
func ReadAnalysis(dir string) ([]Analysis, error) {
	path := filepath.Join(dir, AnalysisFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "slides", "read analysis", "read slides analysis", err)
	}
	var analyses []Analysis
	if err := json.Unmarshal(data, &analyses); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "slides", "read analysis", "decode slides analysis", err)
	}
	return analyses, nil
}

func writeJSON(path string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrMalformed, "slides", "write artifact", "encode slide artifact", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "slides", "write artifact", "write slide artifact", err)
	}
	return path, nil
}
