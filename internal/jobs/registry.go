// Package jobs tracks download and processing work in memory. Processing
// jobs are strictly single-flight: a buffered FIFO queue feeds one worker
// goroutine, so at most one pipeline run holds the transcription and
// vision models at a time. Downloads are independent of processing but
// limited to one active capture. A janitor drops terminal jobs after the
// retention window; completed recordings persist in the history store.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lectern/internal/history"
	"lectern/internal/logging"
	"lectern/internal/pipeline"
	"lectern/internal/services"
)

// ErrDownloadBusy rejects a second concurrent download request.
var ErrDownloadBusy = services.Wrap(services.ErrValidation, "jobs", "enqueue download",
	"a download is already in progress", nil)

// ErrQueueFull rejects processing requests when the FIFO queue is at capacity.
var ErrQueueFull = services.Wrap(services.ErrValidation, "jobs", "enqueue processing",
	"processing queue is full", nil)

// DownloadFunc executes a capture and returns the merged video path.
type DownloadFunc func(ctx context.Context, job DownloadJob, update ProgressUpdate) (string, error)

// ProcessFunc executes one pipeline run.
type ProcessFunc func(ctx context.Context, job ProcessingJob, update StageUpdate) (*pipeline.Result, error)

// ProgressUpdate reports download progress as a percentage.
type ProgressUpdate func(progress float64, message string)

// StageUpdate reports pipeline stage and overall progress.
type StageUpdate func(state pipeline.State, percent float64, message string)

// Recorder persists recording outcomes; history.Store satisfies it.
type Recorder interface {
	Save(ctx context.Context, rec *history.Recording) error
}

// Options tunes queueing and retention.
type Options struct {
	QueueCapacity    int
	RetentionMinutes int
	JanitorInterval  time.Duration
}

// Registry is the in-memory job table and scheduler.
type Registry struct {
	opts     Options
	download DownloadFunc
	process  ProcessFunc
	recorder Recorder
	logger   *slog.Logger

	mu             sync.Mutex
	downloads      map[string]*DownloadJob
	processing     map[string]*ProcessingJob
	activeDownload string

	queue chan string
	wg    sync.WaitGroup

	baseCtx context.Context
}

// NewRegistry creates a Registry. recorder may be nil to disable history
// persistence.
func NewRegistry(opts Options, downloadFn DownloadFunc, processFn ProcessFunc, recorder Recorder, logger *slog.Logger) *Registry {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 16
	}
	if opts.RetentionMinutes <= 0 {
		opts.RetentionMinutes = 240
	}
	if opts.JanitorInterval <= 0 {
		opts.JanitorInterval = time.Minute
	}
	return &Registry{
		opts:       opts,
		download:   downloadFn,
		process:    processFn,
		recorder:   recorder,
		logger:     logging.NewComponentLogger(logger, "jobs"),
		downloads:  make(map[string]*DownloadJob),
		processing: make(map[string]*ProcessingJob),
		queue:      make(chan string, opts.QueueCapacity),
		baseCtx:    context.Background(),
	}
}

// Start launches the processing worker and the retention janitor. The
// given context bounds all job execution; both loops stop when it is
// cancelled and Wait blocks until they exit.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()
	r.wg.Add(2)
	go r.worker(ctx)
	go r.janitor(ctx)
}

// Wait blocks until the worker and janitor have exited.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// EnqueueDownload registers and starts a download. Only one download may
// be active; a second request is rejected.
func (r *Registry) EnqueueDownload(req DownloadRequest) (DownloadJob, error) {
	if err := req.Credential.Validate(); err != nil {
		return DownloadJob{}, err
	}

	r.mu.Lock()
	if r.activeDownload != "" {
		r.mu.Unlock()
		return DownloadJob{}, ErrDownloadBusy
	}
	now := time.Now().UTC()
	job := &DownloadJob{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
		Request:   req,
	}
	r.downloads[job.ID] = job
	r.activeDownload = job.ID
	snapshot := job.snapshot()
	runCtx := r.baseCtx
	r.mu.Unlock()

	r.wg.Add(1)
	go r.runDownload(runCtx, snapshot)
	return snapshot, nil
}

func (r *Registry) runDownload(ctx context.Context, job DownloadJob) {
	defer r.wg.Done()

	update := func(progress float64, message string) {
		r.mu.Lock()
		if current, ok := r.downloads[job.ID]; ok {
			current.Progress = progress
			current.Message = message
			current.UpdatedAt = time.Now().UTC()
		}
		r.mu.Unlock()
	}

	videoPath, err := r.download(ctx, job, update)

	r.mu.Lock()
	current, ok := r.downloads[job.ID]
	if ok {
		current.UpdatedAt = time.Now().UTC()
		if err != nil {
			current.Status = StatusFailed
			current.Error = err.Error()
			current.ErrorCode = services.ErrorCode(err)
		} else {
			current.Status = StatusComplete
			current.Progress = 100
			current.VideoPath = videoPath
		}
	}
	if r.activeDownload == job.ID {
		r.activeDownload = ""
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("download failed", logging.String("job_id", job.ID), logging.Error(err))
		return
	}
	r.logger.Info("download complete",
		logging.String("job_id", job.ID),
		logging.String("video", videoPath),
	)

	if job.Request.Process {
		if _, enqueueErr := r.EnqueueProcessing(ProcessingRequest{
			VideoPath: videoPath,
			Title:     job.Title,
		}); enqueueErr != nil {
			r.logger.Error("auto-enqueue processing failed",
				logging.String("job_id", job.ID), logging.Error(enqueueErr))
		}
	}
}

// EnqueueProcessing queues a pipeline run. A full queue is rejected.
func (r *Registry) EnqueueProcessing(req ProcessingRequest) (ProcessingJob, error) {
	if req.VideoPath == "" {
		return ProcessingJob{}, services.Wrap(services.ErrValidation, "jobs", "enqueue processing", "video path is required", nil)
	}

	now := time.Now().UTC()
	job := &ProcessingJob{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Status:    StatusQueued,
		Stage:     pipeline.StateNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
		Request:   req,
	}

	r.mu.Lock()
	select {
	case r.queue <- job.ID:
		r.processing[job.ID] = job
	default:
		r.mu.Unlock()
		return ProcessingJob{}, ErrQueueFull
	}
	snapshot := job.snapshot()
	persistCtx := r.baseCtx
	r.mu.Unlock()

	r.persistProcessing(persistCtx, snapshot)
	return snapshot, nil
}

func (r *Registry) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			r.runProcessing(ctx, id)
		}
	}
}

func (r *Registry) runProcessing(ctx context.Context, id string) {
	r.mu.Lock()
	job, ok := r.processing[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now().UTC()
	snapshot := job.snapshot()
	r.mu.Unlock()
	r.persistProcessing(ctx, snapshot)

	update := func(state pipeline.State, percent float64, message string) {
		r.mu.Lock()
		if current, ok := r.processing[id]; ok {
			current.Stage = state
			current.Progress = percent
			current.Message = message
			current.UpdatedAt = time.Now().UTC()
		}
		r.mu.Unlock()
	}

	result, err := r.process(ctx, snapshot, update)

	r.mu.Lock()
	current, ok := r.processing[id]
	if ok {
		current.UpdatedAt = time.Now().UTC()
		current.Result = result
		if err != nil {
			current.Status = StatusFailed
			current.Error = err.Error()
			current.ErrorCode = services.ErrorCode(err)
			if result != nil {
				current.Stage = result.FailedStage
			}
		} else {
			current.Status = StatusComplete
			current.Stage = pipeline.StateComplete
			current.Progress = 100
		}
		snapshot = current.snapshot()
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("processing failed", logging.String("job_id", id), logging.Error(err))
	} else {
		r.logger.Info("processing complete", logging.String("job_id", id))
	}
	r.persistProcessing(ctx, snapshot)
}

func (r *Registry) persistProcessing(ctx context.Context, job ProcessingJob) {
	if r.recorder == nil {
		return
	}
	rec := &history.Recording{
		ID:        job.ID,
		Title:     job.Title,
		Status:    history.StatusProcessing,
		Stage:     string(job.Stage),
		Progress:  job.Progress,
		CreatedAt: job.CreatedAt,
	}
	if job.Result != nil {
		rec.RecordingDir = job.Result.RecordingDir
		rec.VideoPath = job.Result.VideoPath
	}
	switch job.Status {
	case StatusComplete:
		rec.Status = history.StatusComplete
		done := job.UpdatedAt
		rec.CompletedAt = &done
	case StatusFailed:
		rec.Status = history.StatusFailed
		rec.ErrorMessage = job.Error
	}
	if err := r.recorder.Save(ctx, rec); err != nil {
		r.logger.Warn("history write failed", logging.String("job_id", job.ID), logging.Error(err))
	}
}

// GetDownload returns a snapshot of a download job.
func (r *Registry) GetDownload(id string) (DownloadJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.downloads[id]
	if !ok {
		return DownloadJob{}, false
	}
	return job.snapshot(), true
}

// GetProcessing returns a snapshot of a processing job.
func (r *Registry) GetProcessing(id string) (ProcessingJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.processing[id]
	if !ok {
		return ProcessingJob{}, false
	}
	return job.snapshot(), true
}

// ListDownloads returns snapshots of all download jobs.
func (r *Registry) ListDownloads() []DownloadJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DownloadJob, 0, len(r.downloads))
	for _, job := range r.downloads {
		out = append(out, job.snapshot())
	}
	return out
}

// ListProcessing returns snapshots of all processing jobs.
func (r *Registry) ListProcessing() []ProcessingJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProcessingJob, 0, len(r.processing))
	for _, job := range r.processing {
		out = append(out, job.snapshot())
	}
	return out
}

func (r *Registry) janitor(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.opts.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(time.Now().UTC())
		}
	}
}

// sweep drops terminal jobs older than the retention window.
func (r *Registry) sweep(now time.Time) {
	cutoff := now.Add(-time.Duration(r.opts.RetentionMinutes) * time.Minute)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, job := range r.downloads {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(r.downloads, id)
		}
	}
	for id, job := range r.processing {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(r.processing, id)
		}
	}
}
