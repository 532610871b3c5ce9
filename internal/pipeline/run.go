package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"lectern/internal/capability"
	"lectern/internal/fileutil"
	"lectern/internal/frames"
	"lectern/internal/logging"
	"lectern/internal/notes"
	"lectern/internal/services"
	"lectern/internal/slides"
	"lectern/internal/transcript"
)

// Run processes one recording end to end. The returned Result carries
// whatever artifacts were produced, including on failure.
func (o *Orchestrator) Run(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	o.mu.Lock()
	o.state = StateNotStarted
	o.failedStage = ""
	o.mu.Unlock()

	if !fileutil.Exists(req.VideoPath) {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "validate", "video file not found", nil)
	}
	if req.Title == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "validate", "recording title is required", nil)
	}

	recordingDir, err := o.createRecordingDir(req.Title)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Title:        req.Title,
		RecordingDir: recordingDir,
		Artifacts:    make(map[string]string),
	}

	videoDest := filepath.Join(recordingDir, VideoFilename)
	if !fileutil.Exists(videoDest) {
		if err := fileutil.CopyFileVerified(req.VideoPath, videoDest); err != nil {
			return result, services.Wrap(services.ErrTransient, "pipeline", "stage video", "copy video into recording", err)
		}
	}
	result.VideoPath = videoDest
	result.Artifacts["video"] = videoDest

	report := func(state State, fraction float64, message string) {
		if onProgress != nil {
			onProgress(state, StageProgress(state, fraction), message)
		}
	}

	o.logger.Info("processing started",
		logging.String("title", req.Title),
		logging.String("recording_dir", recordingDir),
	)

	tr, err := o.runTranscription(ctx, req, recordingDir, videoDest, result, report)
	if err != nil {
		result.State = StateError
		result.FailedStage = StateTranscribing
		return result, o.fail(StateTranscribing, err)
	}

	frameList, err := o.runFrameExtraction(ctx, req, recordingDir, videoDest, result, report)
	if err != nil {
		result.State = StateError
		result.FailedStage = StateExtractingFrames
		return result, o.fail(StateExtractingFrames, err)
	}
	result.FrameCount = len(frameList)

	analyses, err := o.runSlideAnalysis(ctx, req, recordingDir, frameList, result, report)
	if err != nil {
		result.State = StateError
		result.FailedStage = StateAnalyzingSlides
		return result, o.fail(StateAnalyzingSlides, err)
	}
	result.SlideCount = len(analyses)

	if tr != nil && len(analyses) > 0 {
		if err := transcript.WriteEnhanced(recordingDir, tr, analyses); err != nil {
			o.logger.Warn("enhanced transcript failed", logging.Error(err))
		} else {
			result.Artifacts["transcript_with_slides"] = filepath.Join(recordingDir, transcript.EnhancedFilename)
		}
	}

	if err := o.runNotesGeneration(ctx, req, recordingDir, tr, analyses, result, report); err != nil {
		result.State = StateError
		result.FailedStage = StateGeneratingNotes
		return result, o.fail(StateGeneratingNotes, err)
	}

	if err := o.writeManifest(recordingDir, req.Title, result); err != nil {
		o.logger.Warn("manifest write failed", logging.Error(err))
	}
	if err := o.writeIndex(recordingDir, req.Title); err != nil {
		o.logger.Warn("index write failed", logging.Error(err))
	} else {
		result.Artifacts["index"] = filepath.Join(recordingDir, IndexFilename)
	}

	if err := o.advance(StateComplete); err != nil {
		return result, err
	}
	result.State = StateComplete
	report(StateComplete, 1, "processing complete")
	o.logger.Info("processing complete", logging.String("recording_dir", recordingDir))
	return result, nil
}

func (o *Orchestrator) runTranscription(ctx context.Context, req Request, dir, videoPath string, result *Result, report func(State, float64, string)) (*capability.Transcription, error) {
	if err := o.advance(StateTranscribing); err != nil {
		return nil, err
	}
	report(StateTranscribing, 0, "transcribing audio")

	if req.SkipTranscription {
		if tr, err := transcript.Read(dir); err == nil {
			o.logger.Info("transcription skipped, reusing existing transcript")
			o.recordTranscriptArtifacts(dir, result)
			report(StateTranscribing, 1, "transcript reused")
			return tr, nil
		}
		o.logger.Info("transcription skip refused, no prior transcript")
	}

	audioPath := filepath.Join(dir, AudioFilename)
	if err := o.comps.Audio.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return nil, err
	}
	report(StateTranscribing, 0.25, "audio extracted")

	tr, err := o.comps.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if err := transcript.Write(dir, tr); err != nil {
		return nil, err
	}
	o.recordTranscriptArtifacts(dir, result)
	report(StateTranscribing, 1, "transcription complete")
	return tr, nil
}

func (o *Orchestrator) recordTranscriptArtifacts(dir string, result *Result) {
	result.Artifacts["transcript"] = filepath.Join(dir, transcript.TextFilename)
	result.Artifacts["transcript_json"] = filepath.Join(dir, transcript.JSONFilename)
	result.Artifacts["transcript_md"] = filepath.Join(dir, transcript.MarkdownFilename)
}

func (o *Orchestrator) runFrameExtraction(ctx context.Context, req Request, dir, videoPath string, result *Result, report func(State, float64, string)) ([]frames.Frame, error) {
	if err := o.advance(StateExtractingFrames); err != nil {
		return nil, err
	}
	report(StateExtractingFrames, 0, "extracting frames")

	if req.SkipFrames {
		if frameList, err := slides.ReadMetadata(dir); err == nil {
			o.logger.Info("frame extraction skipped, reusing existing frames",
				logging.Int("frames", len(frameList)))
			result.Artifacts["slides_metadata"] = filepath.Join(dir, slides.MetadataFilename)
			report(StateExtractingFrames, 1, "frames reused")
			return frameList, nil
		}
		o.logger.Info("frame skip refused, no prior frame metadata")
	}

	duration, err := o.comps.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	slidesDir := filepath.Join(dir, SlidesDirName)
	frameList, err := o.comps.Frames.Extract(ctx, videoPath, duration, slidesDir, func(completed, total int) {
		if total > 0 {
			report(StateExtractingFrames, float64(completed)/float64(total), "extracting frames")
		}
	})
	if err != nil {
		return nil, err
	}

	metadataPath, err := slides.WriteMetadata(dir, frameList)
	if err != nil {
		return nil, err
	}
	result.Artifacts["slides_metadata"] = metadataPath
	report(StateExtractingFrames, 1, "frame extraction complete")
	return frameList, nil
}

func (o *Orchestrator) runSlideAnalysis(ctx context.Context, req Request, dir string, frameList []frames.Frame, result *Result, report func(State, float64, string)) ([]slides.Analysis, error) {
	if err := o.advance(StateAnalyzingSlides); err != nil {
		return nil, err
	}
	report(StateAnalyzingSlides, 0, "analyzing slides")

	if req.SkipSlides {
		if analyses, err := slides.ReadAnalysis(dir); err == nil {
			o.logger.Info("slide analysis skipped, reusing existing analysis",
				logging.Int("slides", len(analyses)))
			result.Artifacts["slides_analysis"] = filepath.Join(dir, slides.AnalysisFilename)
			report(StateAnalyzingSlides, 1, "slide analysis reused")
			return analyses, nil
		}
		o.logger.Info("slide skip refused, no prior analysis")
	}

	analyses, err := o.comps.Slides.Analyze(ctx, frameList, func(completed, total int) {
		if total > 0 {
			report(StateAnalyzingSlides, float64(completed)/float64(total), "analyzing slides")
		}
	})
	if err != nil {
		return nil, err
	}

	analysisPath, err := slides.WriteAnalysis(dir, analyses)
	if err != nil {
		return nil, err
	}
	result.Artifacts["slides_analysis"] = analysisPath
	report(StateAnalyzingSlides, 1, "slide analysis complete")
	return analyses, nil
}

func (o *Orchestrator) runNotesGeneration(ctx context.Context, req Request, dir string, tr *capability.Transcription, analyses []slides.Analysis, result *Result, report func(State, float64, string)) error {
	if err := o.advance(StateGeneratingNotes); err != nil {
		return err
	}
	report(StateGeneratingNotes, 0, "generating notes")

	if req.SkipNotes {
		primary := filepath.Join(dir, notes.SectionFilename("lecture_notes"))
		if fileutil.Exists(primary) {
			o.logger.Info("notes generation skipped, prior notes exist")
			report(StateGeneratingNotes, 1, "notes reused")
			return nil
		}
		o.logger.Info("notes skip refused, no prior notes")
	}

	transcriptText := ""
	if tr != nil {
		transcriptText = tr.Text
	}
	contextText := o.comps.Notes.BuildContext(transcriptText, analyses)
	paths, err := o.comps.Notes.Generate(ctx, contextText, dir)
	if err != nil {
		return err
	}
	for name, path := range paths {
		result.Artifacts[name] = path
	}
	report(StateGeneratingNotes, 1, "notes generation complete")
	return nil
}

func (o *Orchestrator) createRecordingDir(title string) (string, error) {
	dir := filepath.Join(o.outputDir, RecordingDirName(title))
	if err := os.MkdirAll(filepath.Join(dir, SlidesDirName), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "pipeline", "prepare", "create recording directory", err)
	}
	return dir, nil
}
