package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateFrames(); err != nil {
		return err
	}
	if err := c.validateSlides(); err != nil {
		return err
	}
	if err := c.validateNotes(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if err := ensurePositiveMap(map[string]int{
		"download.request_timeout":   c.Download.RequestTimeout,
		"download.retry_attempts":    c.Download.RetryAttempts,
		"download.estimate_headroom": c.Download.EstimateHeadroom,
		"download.estimate_fallback": c.Download.EstimateFallback,
	}); err != nil {
		return err
	}
	if c.Download.RetryMaxSeconds < c.Download.RetryBaseSeconds {
		return errors.New("download.retry_max_seconds must be >= download.retry_base_seconds")
	}
	if c.Download.MinSegmentBytes <= 0 {
		return errors.New("download.min_segment_bytes must be positive")
	}
	if c.Download.ChunkSeconds <= 0 {
		return errors.New("download.chunk_seconds must be positive")
	}
	if c.Download.ClipSeconds <= 0 {
		return errors.New("download.clip_seconds must be positive")
	}
	return nil
}

func (c *Config) validateFrames() error {
	if c.Frames.SceneThreshold <= 0 || c.Frames.SceneThreshold >= 1 {
		return errors.New("frames.scene_threshold must be between 0 and 1")
	}
	if c.Frames.MinInterval <= 0 {
		return errors.New("frames.min_interval must be positive")
	}
	if c.Frames.FixedInterval < c.Frames.MinInterval {
		return errors.New("frames.fixed_interval must be >= frames.min_interval")
	}
	if c.Frames.MaxFrames <= 0 {
		return errors.New("frames.max_frames must be positive")
	}
	if c.Frames.HashThreshold <= 0 || c.Frames.HashThreshold > 64 {
		return errors.New("frames.hash_threshold must be between 1 and 64")
	}
	return nil
}

func (c *Config) validateSlides() error {
	if c.Slides.OCREnabled && strings.TrimSpace(c.Slides.OCRBinary) == "" {
		return errors.New("slides.ocr_binary must be set when slides.ocr_enabled is true")
	}
	if c.Slides.VisionEnabled && strings.TrimSpace(c.Slides.VisionModel) == "" {
		return errors.New("slides.vision_model must be set when slides.vision_enabled is true")
	}
	if c.Slides.OCRWordThreshold <= 0 {
		return errors.New("slides.ocr_word_threshold must be positive")
	}
	return nil
}

func (c *Config) validateNotes() error {
	parsed, err := url.Parse(c.Notes.OllamaHost)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notes.ollama_host must be a valid URL, got %q", c.Notes.OllamaHost)
	}
	if strings.TrimSpace(c.Notes.Model) == "" {
		return errors.New("notes.model must be set")
	}
	if c.Notes.ContextLimit <= 0 {
		return errors.New("notes.context_limit must be positive")
	}
	if len(c.Notes.Sections) == 0 {
		return errors.New("notes.sections must include at least one section")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.RetentionMinutes <= 0 {
		return errors.New("jobs.retention_minutes must be positive")
	}
	if c.Jobs.QueueCapacity <= 0 {
		return errors.New("jobs.queue_capacity must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
