package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"crate/internal/config"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan the library and update the catalog",
		Long:  "Walks the library (or the given path), reads tags from new or changed audio files, and marks vanished files as missing.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				root := eng.cfg.Paths.LibraryDir
				if len(args) == 1 {
					expanded, err := config.ExpandPath(args[0])
					if err != nil {
						return err
					}
					root = expanded
				}

				var bar *progressbar.ProgressBar
				if !quiet && !jsonOut && isatty.IsTerminal(os.Stdout.Fd()) {
					bar = progressbar.NewOptions(-1,
						progressbar.OptionSetDescription("scanning"),
						progressbar.OptionSpinnerType(14),
						progressbar.OptionClearOnFinish(),
					)
					eng.scanner.Progress = func(path string) {
						bar.Describe("scanning " + filepath.Base(path))
						_ = bar.Add(1)
					}
				}

				result, err := eng.scanner.Scan(cmd.Context(), root)
				if bar != nil {
					_ = bar.Finish()
				}
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scanned %d files: %d added, %d updated, %d unchanged, %d missing\n",
					result.Scanned, result.Added, result.Updated, result.Unchanged, result.Missing)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the scan summary as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the progress display")
	return cmd
}
