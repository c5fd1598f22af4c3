package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/talgya/deepfake-battle/internal/api"
	"github.com/talgya/deepfake-battle/internal/config"
	"github.com/talgya/deepfake-battle/internal/engine"
	"github.com/talgya/deepfake-battle/internal/persistence"
	"github.com/talgya/deepfake-battle/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a simulation live behind the HTTP API",
		Long: `Serve steps a model on a timer and exposes it over HTTP: JSON status
endpoints, a websocket step stream and Prometheus metrics. Finished runs are
archived when storage is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("interval") {
				cfg.Server.Interval, _ = cmd.Flags().GetDuration("interval")
			}
			if cmd.Flags().Changed("db") {
				cfg.Storage.Path, _ = cmd.Flags().GetString("db")
			}
			if err := applyModelFlags(cmd, cfg); err != nil {
				return err
			}
			speed, _ := cmd.Flags().GetFloat64("speed")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, speed)
		},
	}

	addModelFlags(cmd)
	cmd.Flags().Int("port", 8080, "HTTP port")
	cmd.Flags().Duration("interval", time.Second, "Wall time per step at speed 1")
	cmd.Flags().Float64("speed", 1, "Initial speed multiplier (0 starts paused)")
	cmd.Flags().String("db", "", "SQLite archive path (default: storage.path from config)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, speed float64) error {
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.Storage.Path != "" {
		db, err = openDB(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.Storage.Path)
	} else {
		slog.Warn("storage.path not set, runs will not be archived")
	}

	// ── Engine ────────────────────────────────────────────────────────
	metrics := telemetry.NewRegistry()
	metrics.GetPrometheusRegistry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	hub := api.NewHub()
	eng := engine.NewEngine(m)
	eng.Interval = cfg.Server.Interval
	eng.SetSpeed(speed)

	// Archived models are tracked under the engine lock.
	archived := map[engine.Model]bool{}
	save := func(m engine.Model) {
		if db == nil || archived[m] || m.StepCount() == 0 {
			return
		}
		if _, err := db.SaveRun(m); err != nil {
			slog.Error("archive failed", "error", err)
			return
		}
		archived[m] = true
	}

	eng.OnStep = func(m engine.Model, took time.Duration) {
		metrics.RecordStep(m, took)
		hub.Broadcast(m)
	}
	eng.OnStop = func(m engine.Model) {
		slog.Info("simulation finished", "model", m.Name(), "steps", m.StepCount(), "reason", m.StopReason())
		save(m)
	}
	eng.View(metrics.ObserveModel)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Server.AdminKey == "" {
		slog.Warn("DEEPFAKESIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	} else {
		slog.Info("admin endpoints enabled", "admin_key", cfg.Server.RedactedAdminKey())
	}
	apiServer := &api.Server{
		Eng:      eng,
		DB:       db,
		Metrics:  metrics,
		Hub:      hub,
		Port:     cfg.Server.Port,
		AdminKey: cfg.Server.AdminKey,
		NewModel: func() (engine.Model, error) { return buildModel(cfg) },
	}
	httpServer := apiServer.Start()

	go eng.Run(ctx)
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	eng.View(save)
	return nil
}
