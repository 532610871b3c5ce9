package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lectern/internal/capability"
	"lectern/internal/capability/ollama"
	"lectern/internal/capability/tesseract"
	"lectern/internal/capability/whisper"
	"lectern/internal/config"
	"lectern/internal/download"
	"lectern/internal/fileutil"
	"lectern/internal/frames"
	"lectern/internal/jobs"
	"lectern/internal/media"
	"lectern/internal/media/ffprobe"
	"lectern/internal/notes"
	"lectern/internal/pipeline"
	"lectern/internal/services"
	"lectern/internal/slides"
	"lectern/internal/textutil"
)

// Download progress bands: segment fetching maps to 0-70%, merging the
// segments to 70-90%, and finalizing the video file to 90-100%.
const (
	downloadBandEnd = 70.0
	mergeBandEnd    = 90.0
)

func retryPolicy(cfg *config.Config) services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: cfg.Download.RetryAttempts,
		BaseDelay:   time.Duration(cfg.Download.RetryBaseSeconds) * time.Second,
		MaxDelay:    time.Duration(cfg.Download.RetryMaxSeconds) * time.Second,
	}
}

// newDownloadFunc builds the registry's download executor: fetch all
// segments into a per-job work directory, merge them into an mp4, and move
// the result into the output videos folder.
func newDownloadFunc(cfg *config.Config, logger *slog.Logger) jobs.DownloadFunc {
	return func(ctx context.Context, job jobs.DownloadJob, update jobs.ProgressUpdate) (string, error) {
		workDir := filepath.Join(cfg.Paths.WorkDir, "downloads", job.ID)
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return "", services.Wrap(services.ErrTransient, "download", "prepare", "create work directory", err)
		}

		fetcher := download.NewFetcher(
			time.Duration(cfg.Download.RequestTimeout)*time.Second,
			cfg.Download.MinSegmentBytes,
			logger,
		)
		downloader := download.NewDownloader(fetcher, download.Options{
			RetryPolicy:      retryPolicy(cfg),
			MinSegmentBytes:  cfg.Download.MinSegmentBytes,
			ChunkSeconds:     cfg.Download.ChunkSeconds,
			EstimateHeadroom: cfg.Download.EstimateHeadroom,
			EstimateFallback: cfg.Download.EstimateFallback,
		}, logger)

		window := job.Request.Window
		if window != nil && window.StartSeconds > 0 && window.EndSeconds <= window.StartSeconds {
			// An open-ended clip request defaults to the configured clip length.
			capped := *window
			capped.EndSeconds = capped.StartSeconds + cfg.Download.ClipSeconds
			window = &capped
		}

		result, err := downloader.Download(ctx, job.Request.Credential, workDir, window,
			func(completed, estimatedTotal int) {
				if estimatedTotal > 0 {
					percent := downloadBandEnd * float64(completed) / float64(estimatedTotal)
					update(percent, fmt.Sprintf("downloading segment %d/%d", completed, estimatedTotal))
				}
			})
		if err != nil {
			return "", err
		}

		update(downloadBandEnd, "merging segments")
		segmentPaths := make([]string, 0, result.Segments)
		for i := 0; i < result.Segments; i++ {
			segmentPaths = append(segmentPaths, filepath.Join(workDir, download.SegmentFilename(i)))
		}
		toolbox := media.NewToolbox(cfg.FFmpegBinary(), logger)
		mergedPath := filepath.Join(workDir, "video.mp4")
		if err := toolbox.MergeSegments(ctx, workDir, segmentPaths, mergedPath); err != nil {
			return "", err
		}

		update(mergeBandEnd, "finalizing video")
		videoDir := filepath.Join(cfg.Paths.OutputDir, "videos")
		if err := os.MkdirAll(videoDir, 0o755); err != nil {
			return "", services.Wrap(services.ErrTransient, "download", "finalize", "create videos directory", err)
		}
		dest := filepath.Join(videoDir, textutil.SanitizeFileName(job.Title)+".mp4")
		if err := fileutil.MoveFile(mergedPath, dest); err != nil {
			return "", services.Wrap(services.ErrTransient, "download", "finalize", "move merged video", err)
		}
		if !cfg.Download.KeepSegments {
			_ = os.RemoveAll(workDir)
		}

		update(100, "download complete")
		return dest, nil
	}
}

// newProcessFunc builds the registry's processing executor around a fresh
// pipeline orchestrator per job.
func newProcessFunc(cfg *config.Config, logger *slog.Logger) jobs.ProcessFunc {
	return func(ctx context.Context, job jobs.ProcessingJob, update jobs.StageUpdate) (*pipeline.Result, error) {
		orchestrator := newOrchestrator(cfg, logger)
		req := pipeline.Request{
			VideoPath:         job.Request.VideoPath,
			Title:             job.Request.Title,
			SkipTranscription: job.Request.SkipTranscription,
			SkipFrames:        job.Request.SkipFrames,
			SkipSlides:        job.Request.SkipSlides,
			SkipNotes:         job.Request.SkipNotes,
		}
		return orchestrator.Run(ctx, req, func(state pipeline.State, percent float64, message string) {
			update(state, percent, message)
		})
	}
}

func newOrchestrator(cfg *config.Config, logger *slog.Logger) *pipeline.Orchestrator {
	toolbox := media.NewToolbox(cfg.FFmpegBinary(), logger)

	transcriber := whisper.New(whisper.Options{
		Binary:   cfg.WhisperBinary(),
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		WorkDir:  cfg.Paths.WorkDir,
	}, logger)

	frameExtractor := frames.NewExtractor(toolbox, frames.Options{
		SceneThreshold: cfg.Frames.SceneThreshold,
		MinInterval:    cfg.Frames.MinInterval,
		FixedInterval:  cfg.Frames.FixedInterval,
		MaxFrames:      cfg.Frames.MaxFrames,
		HashThreshold:  cfg.Frames.HashThreshold,
		SkipIntro:      cfg.Frames.SkipIntro,
		SkipOutro:      cfg.Frames.SkipOutro,
	}, logger)

	var ocr capability.TextExtractor
	if cfg.Slides.OCREnabled {
		ocr = tesseract.New(cfg.OCRBinary(), logger)
	}
	var vision capability.VisionDescriber
	if cfg.Slides.VisionEnabled {
		vision = ollama.New(ollama.Config{
			Host:    cfg.Notes.OllamaHost,
			Model:   cfg.Slides.VisionModel,
			Timeout: time.Duration(cfg.Notes.TimeoutSeconds) * time.Second,
		}, logger)
	}
	analyzer := slides.NewAnalyzer(ocr, vision, slides.Options{
		OCREnabled:       cfg.Slides.OCREnabled,
		VisionEnabled:    cfg.Slides.VisionEnabled,
		OCRWordThreshold: cfg.Slides.OCRWordThreshold,
	}, logger)

	generator := notes.NewGenerator(ollama.New(ollama.Config{
		Host:    cfg.Notes.OllamaHost,
		Model:   cfg.Notes.Model,
		Timeout: time.Duration(cfg.Notes.TimeoutSeconds) * time.Second,
	}, logger), notes.Options{
		Sections:     cfg.Notes.Sections,
		ContextLimit: cfg.Notes.ContextLimit,
	}, logger)

	comps := pipeline.Components{
		Audio:       transcriber,
		Transcriber: transcriber,
		Frames:      frameExtractor,
		Slides:      analyzer,
		Notes:       generator,
		Probe: func(ctx context.Context, videoPath string) (float64, error) {
			info, err := ffprobe.Inspect(ctx, cfg.FFprobeBinary(), videoPath)
			if err != nil {
				return 0, err
			}
			return info.DurationSeconds(), nil
		},
	}
	meta := pipeline.Metadata{
		WhisperModel: cfg.Transcription.Model,
		NotesModel:   cfg.Notes.Model,
		VisionModel:  cfg.Slides.VisionModel,
	}
	return pipeline.New(cfg.Paths.OutputDir, comps, meta, logger)
}
