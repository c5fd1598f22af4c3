package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/deepfake-battle/internal/agents"
	"github.com/talgya/deepfake-battle/internal/engine"
	"github.com/talgya/deepfake-battle/internal/export"
	"github.com/talgya/deepfake-battle/internal/persistence"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation to completion and export its metrics",
		Long: `Run builds a model from the config and flags, steps it until a stop
condition holds (or --steps have run) and writes the metrics series as CSV.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyModelFlags(cmd, cfg); err != nil {
				return err
			}
			steps, _ := cmd.Flags().GetInt("steps")
			out, _ := cmd.Flags().GetString("out")
			battlesOut, _ := cmd.Flags().GetString("battles")
			dbPath, _ := cmd.Flags().GetString("db")

			m, err := buildModel(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			n, err := engine.Drive(ctx, m, steps)
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("drive: %w", err)
			}

			if err := writeTo(out, cmd.OutOrStdout(), func(w io.Writer) error {
				return export.WriteSeries(w, m.Series())
			}); err != nil {
				return fmt.Errorf("export series: %w", err)
			}
			if bl, ok := m.(engine.BattleLog); ok && battlesOut != "" {
				if err := writeTo(battlesOut, cmd.OutOrStdout(), func(w io.Writer) error {
					return export.WriteBattles(w, bl.Battles())
				}); err != nil {
					return fmt.Errorf("export battles: %w", err)
				}
			}

			if dbPath != "" {
				run, err := archive(dbPath, m)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "archived run %s\n", run.ID)
			}

			printSummary(cmd.ErrOrStderr(), m, n)
			return nil
		},
	}

	addModelFlags(cmd)
	cmd.Flags().Int("steps", 0, "Stop after this many steps (0 = until a stop condition)")
	cmd.Flags().StringP("out", "o", "-", "CSV output path for the metrics series (- for stdout)")
	cmd.Flags().String("battles", "", "CSV output path for the battle log")
	cmd.Flags().String("db", "", "Archive the finished run to this SQLite database")
	return cmd
}

func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func openDB(path string) (*persistence.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return persistence.Open(path)
}

func archive(path string, m engine.Model) (persistence.Run, error) {
	db, err := openDB(path)
	if err != nil {
		return persistence.Run{}, err
	}
	defer db.Close()

	run, err := db.SaveRun(m)
	if err != nil {
		return persistence.Run{}, fmt.Errorf("archive run: %w", err)
	}
	return run, nil
}

func printSummary(w io.Writer, m engine.Model, executed int) {
	reason := m.StopReason()
	if reason == "" {
		reason = "step limit"
	}
	fmt.Fprintf(w, "model %s seed %d: %d steps (%d this run), stopped: %s\n",
		m.Name(), m.Seed(), m.StepCount(), executed, reason)

	names := m.Series().Names()
	if last, ok := m.Series().Last(); ok {
		for i, name := range names {
			fmt.Fprintf(w, "  %-22s %d\n", name, last.Values[i])
		}
	}

	bl, ok := m.(engine.BattleLog)
	if !ok {
		return
	}
	counts := map[agents.Outcome]int{}
	battles := bl.Battles()
	for _, b := range battles {
		counts[b.Outcome]++
	}
	fmt.Fprintf(w, "battles: %d (evaded %d, hit %d, neutralized %d)\n",
		len(battles),
		counts[agents.OutcomeGeneratorEvaded],
		counts[agents.OutcomeDetectorHit],
		counts[agents.OutcomeDetectorWin],
	)
}
