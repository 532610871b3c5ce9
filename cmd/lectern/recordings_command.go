package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecordingsCommand(ctx *commandContext) *cobra.Command {
	recordingsCmd := &cobra.Command{
		Use:   "recordings",
		Short: "Inspect and manage processed recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordingsList(cmd, ctx, false)
		},
	}

	var jsonOutput bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List processed recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordingsList(cmd, ctx, jsonOutput)
		},
	}
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	recordingsCmd.AddCommand(listCmd)

	var purge bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a recording from history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().DeleteRecording(cmd.Context(), args[0], purge); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if purge {
				fmt.Fprintf(out, "Deleted recording %s and its files\n", shortID(args[0]))
			} else {
				fmt.Fprintf(out, "Deleted recording %s from history (files kept)\n", shortID(args[0]))
			}
			return nil
		},
	}
	deleteCmd.Flags().BoolVar(&purge, "purge", false, "Also delete the recording directory on disk")
	recordingsCmd.AddCommand(deleteCmd)

	return recordingsCmd
}

func runRecordingsList(cmd *cobra.Command, ctx *commandContext, jsonOutput bool) error {
	resp, err := ctx.client().Recordings(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, resp)
	}

	out := cmd.OutOrStdout()
	if len(resp.Recordings) == 0 {
		fmt.Fprintln(out, "No recordings in history")
		return nil
	}

	rows := make([][]string, 0, len(resp.Recordings))
	for _, rec := range resp.Recordings {
		detail := rec.Stage
		if rec.Error != "" {
			detail = rec.Error
		}
		rows = append(rows, []string{
			shortID(rec.ID), rec.Title, rec.Status,
			fmt.Sprintf("%.0f%%", rec.Progress), rec.CreatedAt, detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Status", "Progress", "Created", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}
