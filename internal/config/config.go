package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the kepler engine.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Logging  Logging        `yaml:"logging"`
	Backtest BacktestConfig `yaml:"backtest"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

// Storage holds paths for data persistence.
type Storage struct {
	// Backend selects the bar store: "sqlite" or "parquet".
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BacktestConfig holds default simulation parameters. Zero values fall back
// to the engine's built-in defaults.
type BacktestConfig struct {
	InitialCapital  string  `yaml:"initial_capital"`
	PositionSizePct float64 `yaml:"position_size_pct"`
	MaxPositions    int     `yaml:"max_positions"`
	CommissionRate  string  `yaml:"commission_rate"`
	SlippageRate    string  `yaml:"slippage_rate"`
	RiskFreeRate    float64 `yaml:"risk_free_rate"`
}

// SweepConfig controls parameter sweep execution.
type SweepConfig struct {
	Workers        int    `yaml:"workers"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	OutputDir      string `yaml:"output_dir"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Default returns a configuration usable without any config file.
func Default() *Config {
	cfg := &Config{
		Storage: Storage{
			Backend:    "sqlite",
			DataDir:    "data",
			SQLitePath: "data/kepler.db",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("SWEEP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sweep.Workers = n
		}
	}
}
