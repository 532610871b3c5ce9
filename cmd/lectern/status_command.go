package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and active jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			health, err := client.Health(cmd.Context())
			if err != nil {
				if jsonOutput {
					return writeJSON(cmd, map[string]string{"status": "unreachable", "error": err.Error()})
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, fmt.Sprintf("unreachable at %s", ctx.apiAddress()), colorize))
				return nil
			}

			jobs, jobsErr := client.Jobs(cmd.Context())
			if jsonOutput {
				payload := map[string]any{"health": health}
				if jobsErr == nil {
					payload["jobs"] = jobs
				}
				return writeJSON(cmd, payload)
			}

			detail := fmt.Sprintf("version %s at %s", health.Version, ctx.apiAddress())
			fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, detail, colorize))
			if jobsErr != nil {
				fmt.Fprintln(out, renderStatusLine("Jobs", statusWarn, jobsErr.Error(), colorize))
				return nil
			}

			active := 0
			for _, j := range jobs.Downloads {
				if !j.Status.Terminal() {
					active++
				}
			}
			for _, j := range jobs.Processing {
				if !j.Status.Terminal() {
					active++
				}
			}
			kind := statusInfo
			if active > 0 {
				kind = statusOK
			}
			summary := fmt.Sprintf("%d active, %d downloads, %d processing tracked",
				active, len(jobs.Downloads), len(jobs.Processing))
			fmt.Fprintln(out, renderStatusLine("Jobs", kind, summary, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
