package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Catalog database utilities",
	}
	dbCmd.AddCommand(newDBHealthCommand(ctx))
	dbCmd.AddCommand(newDBStatsCommand(ctx))
	return dbCmd
}

func newDBHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check catalog database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				health, err := eng.store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, health)
				}
				rows := [][]string{
					{"Database", health.DBPath},
					{"Exists", strconv.FormatBool(health.DatabaseExists)},
					{"Readable", strconv.FormatBool(health.DatabaseReadable)},
					{"Schema", strconv.FormatBool(health.TableExists)},
					{"Integrity", strconv.FormatBool(health.IntegrityCheck)},
					{"Tracks", strconv.Itoa(health.TotalTracks)},
				}
				if health.Error != "" {
					rows = append(rows, []string{"Error", health.Error})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Value"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit health as JSON")
	return cmd
}

func newDBStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog track counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				stats, err := eng.store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, stats)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d tracks: %d active, %d missing, %d deleted\n",
					stats.Total, stats.Active, stats.Missing, stats.Deleted)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit stats as JSON")
	return cmd
}
