package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeTranscription()
	c.normalizeFrames()
	c.normalizeSlides()
	c.normalizeNotes()
	c.normalizeJobs()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDownload() {
	if c.Download.RequestTimeout <= 0 {
		c.Download.RequestTimeout = defaultRequestTimeout
	}
	if c.Download.RetryAttempts <= 0 {
		c.Download.RetryAttempts = defaultRetryAttempts
	}
	if c.Download.RetryBaseSeconds <= 0 {
		c.Download.RetryBaseSeconds = defaultRetryBaseSecs
	}
	if c.Download.RetryMaxSeconds <= 0 {
		c.Download.RetryMaxSeconds = defaultRetryMaxSecs
	}
	if c.Download.MinSegmentBytes <= 0 {
		c.Download.MinSegmentBytes = defaultMinSegmentBytes
	}
	if c.Download.ChunkSeconds <= 0 {
		c.Download.ChunkSeconds = defaultChunkSeconds
	}
	if c.Download.ClipSeconds <= 0 {
		c.Download.ClipSeconds = defaultClipSeconds
	}
	if c.Download.EstimateHeadroom <= 0 {
		c.Download.EstimateHeadroom = defaultEstimateHeadroom
	}
	if c.Download.EstimateFallback <= 0 {
		c.Download.EstimateFallback = defaultEstimateFallback
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Binary = strings.TrimSpace(c.Transcription.Binary)
	if c.Transcription.Binary == "" {
		c.Transcription.Binary = "whisper"
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
}

func (c *Config) normalizeFrames() {
	if c.Frames.SceneThreshold <= 0 {
		c.Frames.SceneThreshold = defaultSceneThreshold
	}
	if c.Frames.MinInterval <= 0 {
		c.Frames.MinInterval = defaultMinInterval
	}
	if c.Frames.FixedInterval <= 0 {
		c.Frames.FixedInterval = defaultFixedInterval
	}
	if c.Frames.MaxFrames <= 0 {
		c.Frames.MaxFrames = defaultMaxFrames
	}
	if c.Frames.HashThreshold <= 0 {
		c.Frames.HashThreshold = defaultHashThreshold
	}
	if c.Frames.SkipIntro < 0 {
		c.Frames.SkipIntro = 0
	}
	if c.Frames.SkipOutro < 0 {
		c.Frames.SkipOutro = 0
	}
}

func (c *Config) normalizeSlides() {
	c.Slides.OCRBinary = strings.TrimSpace(c.Slides.OCRBinary)
	if c.Slides.OCRBinary == "" {
		c.Slides.OCRBinary = "tesseract"
	}
	if c.Slides.OCRWordThreshold <= 0 {
		c.Slides.OCRWordThreshold = defaultOCRWordThreshold
	}
	c.Slides.VisionModel = strings.TrimSpace(c.Slides.VisionModel)
	if c.Slides.VisionModel == "" {
		c.Slides.VisionModel = defaultVisionModel
	}
}

func (c *Config) normalizeNotes() {
	c.Notes.OllamaHost = strings.TrimRight(strings.TrimSpace(c.Notes.OllamaHost), "/")
	if c.Notes.OllamaHost == "" {
		c.Notes.OllamaHost = defaultOllamaHost
	}
	c.Notes.Model = strings.TrimSpace(c.Notes.Model)
	if c.Notes.Model == "" {
		c.Notes.Model = defaultNotesModel
	}
	if c.Notes.ContextLimit <= 0 {
		c.Notes.ContextLimit = defaultContextLimit
	}
	if c.Notes.TimeoutSeconds <= 0 {
		c.Notes.TimeoutSeconds = defaultNotesTimeout
	}
	if len(c.Notes.Sections) == 0 {
		c.Notes.Sections = defaultSections()
		return
	}
	sections := make([]string, 0, len(c.Notes.Sections))
	seen := make(map[string]struct{}, len(c.Notes.Sections))
	for _, section := range c.Notes.Sections {
		normalized := strings.ToLower(strings.TrimSpace(section))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		sections = append(sections, normalized)
	}
	if len(sections) == 0 {
		sections = defaultSections()
	}
	c.Notes.Sections = sections
}

func (c *Config) normalizeJobs() {
	if c.Jobs.RetentionMinutes <= 0 {
		c.Jobs.RetentionMinutes = defaultRetentionMinutes
	}
	if c.Jobs.QueueCapacity <= 0 {
		c.Jobs.QueueCapacity = defaultQueueCapacity
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
