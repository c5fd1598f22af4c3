package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/deepfake-battle/internal/engine"
	"github.com/talgya/deepfake-battle/internal/network"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, engine.ModelBattle, cfg.Model)
	assert.Equal(t, 30, cfg.Simulation.NumUsers)
	assert.Equal(t, 0.8, cfg.Simulation.DetectionAccuracy)
	assert.True(t, cfg.Simulation.AutoStopWhenAllExposed)
	assert.Nil(t, cfg.Simulation.Seed)
	assert.Equal(t, network.KindSmallWorld, cfg.Network.Kind)
	assert.Equal(t, 0.37, cfg.Virus.SpreadChance)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Server.Interval)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
model: virus
simulation:
  num_users: 12
  spread_rate: 0.9
  seed: 7
network:
  kind: random
  edge_probability: 0.2
virus:
  num_nodes: 50
  initial_outbreak_size: 5
server:
  port: 9000
  interval: 250ms
logging:
  level: debug
  format: json
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "virus", cfg.Model)
	assert.Equal(t, 12, cfg.Simulation.NumUsers)
	assert.Equal(t, 0.9, cfg.Simulation.SpreadRate)
	assert.Equal(t, 3, cfg.Simulation.NumGenerators, "unset keys keep defaults")
	require.NotNil(t, cfg.Simulation.Seed)
	assert.Equal(t, int64(7), *cfg.Simulation.Seed)
	assert.Equal(t, network.KindRandom, cfg.Network.Kind)
	assert.Equal(t, 0.2, cfg.Network.EdgeProbability)
	assert.Equal(t, 50, cfg.Virus.NumNodes)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.Interval)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.SlogLevel())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")

	_, err = LoadFromFile(writeConfig(t, "simulation: [not, a, map"))
	assert.ErrorContains(t, err, "parsing config file")
}

func TestLoadExpandsAdminKey(t *testing.T) {
	t.Setenv("TEST_DEEPFAKE_KEY", "s3cret-admin-key")
	cfg, err := LoadFromFile(writeConfig(t, "server:\n  admin_key: ${TEST_DEEPFAKE_KEY}\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret-admin-key", cfg.Server.AdminKey)
	assert.Equal(t, "s3cr...-key", cfg.Server.RedactedAdminKey())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DEEPFAKESIM_MODEL", "virus")
	t.Setenv("DEEPFAKESIM_SEED", "123")
	t.Setenv("DEEPFAKESIM_MAX_STEPS", "40")
	t.Setenv("DEEPFAKESIM_PORT", "7070")
	t.Setenv("DEEPFAKESIM_INTERVAL", "50ms")
	t.Setenv("DEEPFAKESIM_ADMIN_KEY", "k")
	t.Setenv("DEEPFAKESIM_DB_PATH", "")
	t.Setenv("DEEPFAKESIM_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "virus", cfg.Model)
	require.NotNil(t, cfg.Simulation.Seed)
	assert.Equal(t, int64(123), *cfg.Simulation.Seed)
	assert.Equal(t, int64(123), *cfg.Virus.Seed)
	assert.Equal(t, 40, cfg.Simulation.MaxSteps)
	assert.Equal(t, 40, cfg.Virus.MaxSteps)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.Server.Interval)
	assert.Equal(t, "(set)", cfg.Server.RedactedAdminKey())
	assert.Empty(t, cfg.Storage.Path, "an empty DB path disables storage")
	assert.Equal(t, slog.LevelWarn, cfg.Logging.SlogLevel())
}

func TestEnvOverridesRejectMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"SEED", "12x"},
		{"MAX_STEPS", "ten"},
		{"PORT", "80a"},
		{"INTERVAL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEEPFAKESIM_"+tt.name, tt.value)

			cfg, err := Load("")
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "DEEPFAKESIM_"+tt.name)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown model", func(c *Config) { c.Model = "sir" }, "Model"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "Port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "Level"},
		{"bad rate", func(c *Config) { c.Simulation.DetectionRate = 3 }, "simulation"},
		{"bad network", func(c *Config) { c.Network.Kind = "lattice" }, "network"},
		{"bad outbreak", func(c *Config) { c.Virus.InitialOutbreakSize = 0 }, "virus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	_, err := Load(writeConfig(t, "simulation:\n  max_steps: 0\n"))
	assert.ErrorIs(t, err, engine.ErrInvalidParams)
}
