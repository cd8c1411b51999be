package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"crate/internal/config"
	"crate/internal/reorg"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var templateFlag string
	var rootFlag string
	var jsonOut bool
	var csvPath string
	var yes bool
	var showNoops bool

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Plan and apply the library layout",
		Long: "Renders every cataloged track's destination under the configured template, previews the resulting plan, " +
			"and applies it in the selected mode. The default mode, simulate, never touches the filesystem.",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := reorg.ParseMode(modeFlag)
			if !ok {
				return fmt.Errorf("invalid mode %q (want simulate, move, copy, or link)", modeFlag)
			}
			return ctx.withEngine(func(eng *engine) error {
				tmpl, err := compileTemplate(eng.cfg, templateFlag)
				if err != nil {
					return err
				}
				root := eng.cfg.Paths.LibraryDir
				if rootFlag != "" {
					expanded, err := config.ExpandPath(rootFlag)
					if err != nil {
						return err
					}
					root = expanded
				}

				tracks, err := activeTracks(cmd.Context(), eng)
				if err != nil {
					return err
				}
				plan, err := reorg.BuildPlan(tracks, tmpl, root, mode)
				if err != nil {
					return err
				}

				if csvPath != "" {
					if err := writePlanCSV(csvPath, plan); err != nil {
						return err
					}
				}
				if jsonOut && !mode.Mutates() {
					return writeJSON(cmd, plan)
				}

				out := cmd.OutOrStdout()
				if !jsonOut {
					printPlan(cmd, plan, showNoops)
				}
				if !mode.Mutates() {
					return nil
				}

				counts := plan.Counts()
				if counts.Changes == 0 {
					fmt.Fprintln(out, "Nothing to do.")
					return nil
				}
				if !yes {
					prompt := fmt.Sprintf("Apply %d %s operations", counts.Changes, mode)
					if !confirm(cmd.InOrStdin(), out, prompt) {
						fmt.Fprintln(out, "Aborted.")
						return nil
					}
				}

				report, err := eng.exec.Execute(cmd.Context(), plan)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, report)
				}
				printReport(cmd, report)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "simulate", "Execution mode: simulate, move, copy, or link")
	cmd.Flags().StringVarP(&templateFlag, "template", "t", "", "Named template from the config, or a literal pattern")
	cmd.Flags().StringVar(&rootFlag, "root", "", "Destination root (defaults to the library directory)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the plan or report as JSON")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the plan to a CSV file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply without the confirmation prompt")
	cmd.Flags().BoolVar(&showNoops, "show-noops", false, "Include already-correct entries in the preview")
	return cmd
}

func printPlan(cmd *cobra.Command, plan *reorg.Plan, showNoops bool) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		if entry.Op == reorg.OpNoop && !showNoops {
			continue
		}
		detail := entry.Target
		if entry.Op == reorg.OpConflict {
			detail = entry.Reason
		}
		rows = append(rows, []string{string(entry.Op), entry.Source, detail})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Op", "Source", "Target"}, rows, nil))
	}

	counts := plan.Counts()
	fmt.Fprintf(out, "%d changes, %d already in place, %d conflicts\n",
		counts.Changes, counts.NoOps, counts.Conflicts)
	if plan.Mode == reorg.ModeSimulate && counts.Changes > 0 {
		fmt.Fprintln(out, "Simulation only. Re-run with --mode move, copy, or link to apply.")
	}
}

func printReport(cmd *cobra.Command, report *reorg.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Applied %d of %d operations", report.Succeeded, report.Attempted)
	if report.BatchID != "" {
		fmt.Fprintf(out, " (undo batch %s)", report.BatchID)
	}
	fmt.Fprintln(out)
	for _, failure := range report.Failed {
		fmt.Fprintf(out, "  failed [%s] %s: %s\n", failure.Reason, failure.Entry.Source, failure.Detail)
	}
}

// writePlanCSV exports a plan as source,target,op,reason rows for batch
// consumption.
func writePlanCSV(path string, plan *reorg.Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"track_id", "op", "source", "target", "reason"}); err != nil {
		return err
	}
	for _, entry := range plan.Entries {
		record := []string{
			strconv.FormatInt(entry.TrackID, 10),
			string(entry.Op),
			entry.Source,
			entry.Target,
			entry.Reason,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
