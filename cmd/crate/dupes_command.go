package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"crate/internal/catalog"
	"crate/internal/duplicates"
)

func newDupesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var apply bool
	var yes bool

	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "Find duplicate tracks",
		Long: "Groups cataloged tracks that appear to be the same recording and shows the keeper chosen for each group. " +
			"With --apply, losers are parked in the trash directory (or marked deleted) per the configured disposition.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				tracks, err := activeTracks(cmd.Context(), eng)
				if err != nil {
					return err
				}

				groups := duplicates.Detect(cmd.Context(), tracks, duplicates.Options{
					DurationToleranceSeconds: eng.cfg.Duplicates.DurationToleranceSeconds,
					UseContentHash:           eng.cfg.Duplicates.UseContentHash,
					HashWorkers:              eng.cfg.Duplicates.HashWorkers,
					Logger:                   eng.logger,
				})

				if eng.cfg.Duplicates.UseContentHash {
					if err := persistHashes(cmd, eng, groups); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				if jsonOut && !apply {
					return writeJSON(cmd, groups)
				}
				if len(groups) == 0 {
					fmt.Fprintln(out, "No duplicates found.")
					return nil
				}

				if !jsonOut {
					printGroups(cmd, groups)
				}
				if !apply {
					return nil
				}

				losers := 0
				for _, group := range groups {
					losers += len(group.Losers)
				}
				disposition := eng.cfg.Duplicates.OnDuplicate
				if !yes && disposition != "skip" {
					prompt := fmt.Sprintf("Apply disposition %q to %d duplicate files", disposition, losers)
					if !confirm(cmd.InOrStdin(), out, prompt) {
						fmt.Fprintln(out, "Aborted.")
						return nil
					}
				}

				report, err := eng.exec.ResolveDuplicates(cmd.Context(), groups)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, report)
				}
				fmt.Fprintf(out, "Parked %d of %d duplicate files", report.Succeeded, report.Attempted)
				if report.BatchID != "" {
					fmt.Fprintf(out, " (undo batch %s)", report.BatchID)
				}
				fmt.Fprintln(out)
				for _, failure := range report.Failed {
					fmt.Fprintf(out, "  failed [%s] %s: %s\n", failure.Reason, failure.Entry.Source, failure.Detail)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit groups or the disposition report as JSON")
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the configured duplicate disposition")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply without the confirmation prompt")
	return cmd
}

// persistHashes writes hashes computed during detection back to the catalog
// so later detection and planning runs skip the file reads. The scanner
// clears a track's hash whenever its content changes.
func persistHashes(cmd *cobra.Command, eng *engine, groups []duplicates.Group) error {
	for _, group := range groups {
		for _, track := range append([]*catalog.Track{group.Keeper}, group.Losers...) {
			if track.PartialHash == "" {
				continue
			}
			if err := eng.store.SetPartialHash(cmd.Context(), track.ID, track.PartialHash); err != nil {
				return err
			}
		}
	}
	return nil
}

func printGroups(cmd *cobra.Command, groups []duplicates.Group) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(groups)*3)
	for i, group := range groups {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), "keeper", group.Keeper.Path,
			formatBitrate(group.Keeper.Bitrate), group.Keeper.Format,
		})
		for _, loser := range group.Losers {
			rows = append(rows, []string{
				"", "loser", loser.Path,
				formatBitrate(loser.Bitrate), loser.Format,
			})
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Group", "Role", "Path", "Bitrate", "Format"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "%d duplicate groups\n", len(groups))
}

func formatBitrate(bitrate int) string {
	if bitrate <= 0 {
		return "-"
	}
	return fmt.Sprintf("%dk", bitrate)
}
