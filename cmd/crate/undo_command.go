package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"crate/internal/undo"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Reverse the most recent batch",
		Long:  "Pops the most recent executed batch and replays its operations in reverse. Repeated invocations walk further back, one batch at a time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				report, err := eng.log.UndoLast(cmd.Context(), eng.store)
				if err != nil {
					if errors.Is(err, undo.ErrEmpty) {
						fmt.Fprintln(cmd.OutOrStdout(), "Nothing to undo.")
						return nil
					}
					return err
				}
				if jsonOut {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Undid %d of %d operations from batch %s (%s)\n",
					report.Succeeded, report.Attempted, report.BatchID, report.Mode)
				for _, failure := range report.Failed {
					fmt.Fprintf(out, "  failed [%s] %s: %v\n", failure.Reason, failure.Entry.Source, failure.Err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the undo report as JSON")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List executed batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				batches, err := eng.log.Batches(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(batches) == 0 {
					fmt.Fprintln(out, "No batches recorded.")
					return nil
				}
				rows := make([][]string, 0, len(batches))
				for _, batch := range batches {
					rows = append(rows, []string{
						batch.ID,
						batch.Mode,
						batch.CreatedAt.Local().Format(time.DateTime),
						strconv.Itoa(len(batch.Entries)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Batch", "Mode", "Executed", "Entries"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches to list")
	return cmd
}
