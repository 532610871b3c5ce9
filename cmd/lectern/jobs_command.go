package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List tracked download and processing jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := ctx.client().Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, jobs)
			}

			out := cmd.OutOrStdout()
			if len(jobs.Downloads) == 0 && len(jobs.Processing) == 0 {
				fmt.Fprintln(out, "No jobs tracked")
				return nil
			}

			if len(jobs.Downloads) > 0 {
				rows := make([][]string, 0, len(jobs.Downloads))
				for _, j := range jobs.Downloads {
					detail := j.Message
					if j.Error != "" {
						detail = j.Error
					}
					rows = append(rows, []string{
						shortID(j.ID), j.Title, string(j.Status),
						fmt.Sprintf("%.0f%%", j.Progress), detail,
					})
				}
				fmt.Fprintln(out, "Downloads")
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Status", "Progress", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
			}

			if len(jobs.Processing) > 0 {
				rows := make([][]string, 0, len(jobs.Processing))
				for _, j := range jobs.Processing {
					detail := j.Message
					if j.Error != "" {
						detail = j.Error
					}
					rows = append(rows, []string{
						shortID(j.ID), j.Title, string(j.Stage), string(j.Status),
						fmt.Sprintf("%.0f%%", j.Progress), detail,
					})
				}
				fmt.Fprintln(out, "Processing")
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Stage", "Status", "Progress", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
