// Package config loads simulator settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/deepfake-battle/internal/engine"
	"github.com/talgya/deepfake-battle/internal/network"
	"github.com/talgya/deepfake-battle/internal/validation"
	"github.com/talgya/deepfake-battle/internal/virus"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DEEPFAKESIM_"

// Config is the complete simulator configuration.
type Config struct {
	// Model selects which simulation runs: "battle" or "virus".
	Model string `json:"model" yaml:"model" validate:"oneof=battle virus"`

	Simulation engine.Params `json:"simulation" yaml:"simulation"`
	Network    network.Spec  `json:"network" yaml:"network"`
	Virus      virus.Params  `json:"virus" yaml:"virus"`

	Server  ServerConfig  `json:"server" yaml:"server"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ServerConfig controls the HTTP API and the live step loop.
type ServerConfig struct {
	Port     int           `json:"port" yaml:"port" validate:"gte=1,lte=65535"`
	Interval time.Duration `json:"interval" yaml:"interval" validate:"gt=0"`
	// AdminKey guards the POST endpoints. Empty disables them.
	AdminKey string `json:"admin_key,omitempty" yaml:"admin_key,omitempty"`
}

// RedactedAdminKey returns a display-safe form of the admin key.
func (c ServerConfig) RedactedAdminKey() string {
	if c.AdminKey == "" {
		return ""
	}
	if len(c.AdminKey) < 12 {
		return "(set)"
	}
	return c.AdminKey[:4] + "..." + c.AdminKey[len(c.AdminKey)-4:]
}

// StorageConfig locates the run archive. An empty path disables archiving.
type StorageConfig struct {
	Path string `json:"path" yaml:"path"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=text json"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Model:      engine.ModelBattle,
		Simulation: engine.DefaultParams(),
		Network:    network.DefaultSpec(),
		Virus:      virus.DefaultParams(),
		Server: ServerConfig{
			Port:     8080,
			Interval: time.Second,
		},
		Storage: StorageConfig{
			Path: "data/deepfakesim.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns the defaults, overlaid by the file at path when path is not
// empty, then by environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a YAML file over the defaults without validating it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Server.AdminKey = expandEnvVars(cfg.Server.AdminKey)
	cfg.Storage.Path = expandEnvVars(cfg.Storage.Path)
	return cfg, nil
}

// Validate checks the model sections first, then the server and logging
// settings.
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if err := c.Virus.Validate(); err != nil {
		return fmt.Errorf("virus: %w", err)
	}
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps Logging.Level to a slog level.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyEnvOverrides layers DEEPFAKESIM_* variables over cfg. A variable that
// is set but does not parse is an error.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "MODEL"); v != "" {
		cfg.Model = v
	}

	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", EnvPrefix, err)
		}
		cfg.Simulation.Seed = &n
		cfg.Virus.Seed = &n
	}
	if v := os.Getenv(EnvPrefix + "MAX_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_STEPS: %w", EnvPrefix, err)
		}
		cfg.Simulation.MaxSteps = n
		cfg.Virus.MaxSteps = n
	}

	if v := os.Getenv(EnvPrefix + "NETWORK_KIND"); v != "" {
		cfg.Network.Kind = v
	}

	if v := os.Getenv(EnvPrefix + "PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}
		cfg.Server.Port = n
	}
	if v := os.Getenv(EnvPrefix + "INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sINTERVAL: %w", EnvPrefix, err)
		}
		cfg.Server.Interval = d
	}
	if v := os.Getenv(EnvPrefix + "ADMIN_KEY"); v != "" {
		cfg.Server.AdminKey = v
	}

	if v, ok := os.LookupEnv(EnvPrefix + "DB_PATH"); ok {
		cfg.Storage.Path = v
	}

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// expandEnvVars expands ${VAR} patterns in s.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
