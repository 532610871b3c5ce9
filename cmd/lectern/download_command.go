package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/jobs"
)

const watchInterval = 2 * time.Second

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		title     string
		baseURL   string
		keyPairID string
		policy    string
		signature string
		startTime float64
		endTime   float64
		process   bool
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Queue a lecture stream download",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := api.DownloadPayload{
				Title:     title,
				BaseURL:   baseURL,
				KeyPairID: keyPairID,
				Policy:    policy,
				Signature: signature,
				Process:   process,
			}
			if cmd.Flags().Changed("start") {
				payload.StartTime = &startTime
			}
			if cmd.Flags().Changed("end") {
				payload.EndTime = &endTime
			}

			client := ctx.client()
			job, err := client.StartDownload(cmd.Context(), payload)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Download queued: %s (%s)\n", job.Title, shortID(job.ID))
			if !watch {
				fmt.Fprintf(out, "Track it with `lectern jobs` or `lectern download --watch`\n")
				return nil
			}

			final, err := watchDownload(cmd, client, job.ID)
			if err != nil {
				return err
			}
			if final.Error != "" {
				return fmt.Errorf("download failed: %s", final.Error)
			}
			fmt.Fprintf(out, "Download complete: %s\n", final.VideoPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Lecture title (required)")
	cmd.Flags().StringVarP(&baseURL, "url", "u", "", "Stream base URL (required)")
	cmd.Flags().StringVar(&keyPairID, "key-pair-id", "", "CloudFront Key-Pair-Id token")
	cmd.Flags().StringVar(&policy, "policy", "", "CloudFront Policy token")
	cmd.Flags().StringVar(&signature, "signature", "", "CloudFront Signature token")
	cmd.Flags().Float64Var(&startTime, "start", 0, "Clip start offset in seconds")
	cmd.Flags().Float64Var(&endTime, "end", 0, "Clip end offset in seconds")
	cmd.Flags().BoolVar(&process, "process", false, "Run the processing pipeline after the download completes")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Wait for the download and report progress")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func watchDownload(cmd *cobra.Command, client *api.Client, id string) (jobs.DownloadJob, error) {
	out := cmd.OutOrStdout()
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	var lastMessage string
	for {
		job, err := client.DownloadStatus(cmd.Context(), id)
		if err != nil {
			return job, err
		}
		if job.Message != "" && job.Message != lastMessage {
			fmt.Fprintf(out, "  %5.1f%%  %s\n", job.Progress, job.Message)
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

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
