// Command deepfakesim runs the misinformation battle simulation: AI content
// generators seed exposures across a social network while detectors hunt
// them down and label what they find.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/deepfake-battle/internal/config"
	"github.com/talgya/deepfake-battle/internal/engine"
	"github.com/talgya/deepfake-battle/internal/virus"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deepfakesim",
		Short: "Agent-based simulation of AI-generated misinformation",
		Long: `deepfakesim simulates AI content generators spreading misinformation
through a social network of users while AI detectors fight back.

Runs are reproducible from their seed, export their metrics as CSV and can be
archived to SQLite or served live over HTTP.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newServeCmd(),
		newRunsCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "deepfakesim version %s\n", version)
			}
		},
	}
}

// loadConfig reads --config and installs the configured logger on the
// command's stderr.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Logging, cmd.ErrOrStderr())
	return cfg, nil
}

func setupLogging(lc config.LoggingConfig, w io.Writer) {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// applyModelFlags overlays --model, --seed and --max-steps on cfg.
func applyModelFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("model") {
		cfg.Model, _ = cmd.Flags().GetString("model")
	}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetInt64("seed")
		cfg.Simulation.Seed = &seed
		cfg.Virus.Seed = &seed
	}
	if cmd.Flags().Changed("max-steps") {
		n, _ := cmd.Flags().GetInt("max-steps")
		cfg.Simulation.MaxSteps = n
		cfg.Virus.MaxSteps = n
	}
	return cfg.Validate()
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", engine.ModelBattle, "Model to run: battle or virus")
	cmd.Flags().Int64("seed", 0, "Random seed (default: from config, else crypto-random)")
	cmd.Flags().Int("max-steps", 0, "Override the model's max_steps")
}

// buildModel constructs the model cfg selects.
func buildModel(cfg *config.Config) (engine.Model, error) {
	switch cfg.Model {
	case virus.ModelVirus:
		return virus.New(cfg.Virus)
	case engine.ModelBattle:
		return engine.New(cfg.Simulation, cfg.Network)
	default:
		return nil, fmt.Errorf("unknown model %q", cfg.Model)
	}
}
