package download

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"lectern/internal/fileutil"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// Range optionally restricts a download to a time window, in seconds from
// stream start. Zero values mean unbounded.
type Range struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

// Options tunes the downloader.
type Options struct {
	RetryPolicy      services.RetryPolicy
	MinSegmentBytes  int64
	ChunkSeconds     float64
	EstimateHeadroom int
	EstimateFallback int
}

// Result reports a completed download.
type Result struct {
	Segments   int
	FirstIndex int
	LastIndex  int
	Pattern    Pattern
	Dir        string
}

// ProgressFunc receives completed and estimated-total segment counts. The
// estimate may shrink once the true stream end is observed; the final call
// always reports completed == total.
type ProgressFunc func(completed, estimatedTotal int)

// Downloader reconstructs a stream into sequentially numbered segment
// files.
type Downloader struct {
	fetcher *Fetcher
	opts    Options
	logger  *slog.Logger
}

// NewDownloader creates a Downloader. A nil logger disables logging.
func NewDownloader(fetcher *Fetcher, opts Options, logger *slog.Logger) *Downloader {
	if opts.ChunkSeconds <= 0 {
		opts.ChunkSeconds = 10
	}
	if opts.MinSegmentBytes <= 0 {
		opts.MinSegmentBytes = 1024
	}
	if opts.EstimateHeadroom <= 0 {
		opts.EstimateHeadroom = 100
	}
	if opts.EstimateFallback <= 0 {
		opts.EstimateFallback = 500
	}
	return &Downloader{
		fetcher: fetcher,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "downloader"),
	}
}

// SegmentFilename names the on-disk file for a sequential output index.
// Output naming is decoupled from the upstream pattern so merging never
// depends on it.
func SegmentFilename(index int) string {
	return fmt.Sprintf("segment_%06d.ts", index)
}

// Download iterates upstream indices until end-of-stream or the window cap,
// writing one file per segment into destDir. On credential expiry the job
// fails immediately; on a transient failure that exhausts its retries the
// whole job fails rather than leaving silent gaps.
func (d *Downloader) Download(ctx context.Context, cred StreamCredential, destDir string, window *Range, onProgress ProgressFunc) (*Result, error) {
	if err := cred.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "download", "validate credential", err.Error(), nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "download", "prepare directory", "create segment directory", err)
	}

	startIndex, endIndex := d.windowIndices(window)
	estimate := d.estimateTotal(cred, startIndex, endIndex)
	report := func(completed int) {
		if onProgress == nil {
			return
		}
		total := estimate
		if completed > total {
			total = completed
		}
		onProgress(completed, total)
	}

	start := time.Now()
	var (
		resolved   bool
		pattern    Pattern
		completed  int
		endReached bool
	)

	for index := startIndex; ; index++ {
		if endIndex >= 0 && index > endIndex {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTransient, "download", "fetch segments", "download cancelled", err)
		}

		outPath := filepath.Join(destDir, SegmentFilename(completed))
		if fileutil.FileSize(outPath) >= d.opts.MinSegmentBytes {
			// Already on disk from an earlier attempt.
			completed++
			report(completed)
			continue
		}

		var result FetchResult
		if !resolved {
			var err error
			pattern, result, err = ResolvePattern(ctx, d.fetcher, cred, index, d.opts.RetryPolicy, d.logger)
			if err != nil {
				return nil, err
			}
			resolved = true
		} else {
			result = d.fetcher.FetchWithRetry(ctx, cred.SegmentURL(pattern.Filename(index)), d.opts.RetryPolicy)
		}

		switch result.Outcome {
		case OutcomeSuccess:
			if err := writeSegment(outPath, result.Body); err != nil {
				return nil, services.Wrap(services.ErrTransient, "download", "write segment", outPath, err)
			}
			completed++
			report(completed)
		case OutcomeEndOfStream:
			endReached = true
		case OutcomeAuthExpired:
			return nil, services.Wrap(services.ErrAuthExpired, "download", "fetch segment", fmt.Sprintf("index %d returned http 403", index), nil)
		default:
			return nil, services.Wrap(services.ErrTransient, "download", "fetch segment", fmt.Sprintf("index %d failed after retries", index), result.Err)
		}
		if endReached {
			break
		}
	}

	if completed == 0 {
		return nil, services.Wrap(services.ErrNotFound, "download", "fetch segments", "stream yielded no segments", nil)
	}

	// Correct the estimate now that the true end is known.
	estimate = completed
	report(completed)

	if d.logger != nil {
		d.logger.Info("download complete",
			logging.Int("segments", completed),
			logging.String("pattern", pattern.String()),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	return &Result{
		Segments:   completed,
		FirstIndex: startIndex,
		LastIndex:  startIndex + completed - 1,
		Pattern:    pattern,
		Dir:        destDir,
	}, nil
}

func (d *Downloader) windowIndices(window *Range) (int, int) {
	if window == nil {
		return 0, -1
	}
	start := 0
	if window.StartSeconds > 0 {
		start = int(window.StartSeconds / d.opts.ChunkSeconds)
	}
	end := -1
	if window.EndSeconds > 0 {
		end = int(math.Ceil(window.EndSeconds/d.opts.ChunkSeconds)) - 1
		if end < start {
			end = start
		}
	}
	return start, end
}

func (d *Downloader) estimateTotal(cred StreamCredential, startIndex, endIndex int) int {
	if endIndex >= 0 {
		return endIndex - startIndex + 1
	}
	if cred.LastKnownGoodIndex != nil {
		estimate := *cred.LastKnownGoodIndex + d.opts.EstimateHeadroom - startIndex
		if estimate > 0 {
			return estimate
		}
	}
	return d.opts.EstimateFallback
}

func writeSegment(path string, body []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
