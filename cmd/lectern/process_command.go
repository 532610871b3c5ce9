package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/jobs"
	"lectern/internal/textutil"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		title             string
		skipTranscription bool
		skipFrames        bool
		skipSlides        bool
		skipNotes         bool
		watch             bool
	)

	cmd := &cobra.Command{
		Use:   "process <video-path>",
		Short: "Queue a video for transcript, slide, and notes generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}
			if strings.TrimSpace(title) == "" {
				base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
				title = textutil.DeriveTitle(base)
			}

			payload := api.ProcessPayload{
				Title:             title,
				VideoPath:         videoPath,
				SkipTranscription: skipTranscription,
				SkipFrames:        skipFrames,
				SkipSlides:        skipSlides,
				SkipNotes:         skipNotes,
			}

			client := ctx.client()
			job, err := client.StartProcessing(cmd.Context(), payload)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processing queued: %s (%s)\n", job.Title, shortID(job.ID))
			if !watch {
				return nil
			}

			final, err := watchProcessing(cmd, client, job.ID)
			if err != nil {
				return err
			}
			if final.Error != "" {
				return fmt.Errorf("processing failed at %s: %s", final.Stage, final.Error)
			}
			if final.Result != nil {
				fmt.Fprintf(out, "Processing complete: %s\n", final.Result.RecordingDir)
			} else {
				fmt.Fprintln(out, "Processing complete")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Lecture title (defaults to the video filename)")
	cmd.Flags().BoolVar(&skipTranscription, "skip-transcription", false, "Reuse an existing transcript artifact")
	cmd.Flags().BoolVar(&skipFrames, "skip-frames", false, "Reuse existing extracted slide frames")
	cmd.Flags().BoolVar(&skipSlides, "skip-slides", false, "Reuse an existing slide analysis artifact")
	cmd.Flags().BoolVar(&skipNotes, "skip-notes", false, "Reuse existing generated notes")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Wait for the pipeline and report stage progress")
	return cmd
}

func watchProcessing(cmd *cobra.Command, client *api.Client, id string) (jobs.ProcessingJob, error) {
	out := cmd.OutOrStdout()
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	var lastMessage string
	for {
		job, err := client.ProcessStatus(cmd.Context(), id)
		if err != nil {
			return job, err
		}
		if job.Message != "" && job.Message != lastMessage {
			fmt.Fprintf(out, "  %5.1f%%  [%s] %s\n", job.Progress, job.Stage, job.Message)
			lastMessage = job.Message
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-cmd.Context().Done():
			return job, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}
