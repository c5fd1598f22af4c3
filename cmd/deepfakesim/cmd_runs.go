package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/deepfake-battle/internal/export"
	"github.com/talgya/deepfake-battle/internal/persistence"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived runs",
	}
	cmd.PersistentFlags().String("db", "", "SQLite archive path (default: storage.path from config)")
	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd())
	return cmd
}

// openArchive resolves --db against the config and opens the archive.
func openArchive(cmd *cobra.Command) (*persistence.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	path := cfg.Storage.Path
	if cmd.Flags().Changed("db") {
		path, _ = cmd.Flags().GetString("db")
	}
	if path == "" {
		return nil, fmt.Errorf("no archive configured (set --db or storage.path)")
	}
	return openDB(path)
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := db.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				if runs == nil {
					runs = []persistence.Run{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMODEL\tSEED\tSTEPS\tSTOP REASON\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
					r.ID, r.Model, r.Seed, r.Steps, r.StopReason, r.Created().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print an archived run's metrics series as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := db.GetRun(args[0])
			if err != nil {
				return err
			}
			series, err := db.LoadSeries(run.ID)
			if err != nil {
				return fmt.Errorf("load series: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				battles, err := db.LoadBattles(run.ID)
				if err != nil {
					return fmt.Errorf("load battles: %w", err)
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run":     run,
					"samples": series.Samples(),
					"battles": battles,
				})
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "run %s: model %s seed %d, %d steps, %s\n",
				run.ID, run.Model, run.Seed, run.Steps, run.StopReason)
			return export.WriteSeries(cmd.OutOrStdout(), series)
		},
	}
}
