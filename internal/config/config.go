// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration.
type Config struct {
	Server     Server     `yaml:"server"`
	Simulation Simulation `yaml:"simulation"`
	Storage    Storage    `yaml:"storage"`
	Reporting  Reporting  `yaml:"reporting"`
}

// Server holds network listener configuration.
type Server struct {
	ListenAddr string `yaml:"listen_addr"`
	// MaxUploadBytes caps the decoded CSV payload accepted per job.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Simulation holds the orchestration limits and defaults.
type Simulation struct {
	// MaxRuns is the safety ceiling on requested trials per batch.
	MaxRuns int `yaml:"max_runs"`
	// DefaultWorkers is used when a job does not specify parallel_workers.
	DefaultWorkers int `yaml:"default_workers"`
	DefaultRuns    int `yaml:"default_runs"`
}

// Storage selects and configures the persistence backends.
type Storage struct {
	// UseMemory selects in-memory stores; DSNs are ignored when set.
	UseMemory     bool   `yaml:"use_memory"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// Reporting holds report generation settings.
type Reporting struct {
	OutputDir string `yaml:"output_dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: Server{
			ListenAddr:     ":8080",
			MaxUploadBytes: 16 << 20,
		},
		Simulation: Simulation{
			MaxRuns:        10000,
			DefaultWorkers: 4,
			DefaultRuns:    1000,
		},
		Storage: Storage{
			UseMemory: true,
		},
		Reporting: Reporting{
			OutputDir: "output",
		},
	}
}

// Load reads the YAML file at path into a Config layered over the defaults,
// then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
		cfg.Storage.UseMemory = false
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
		cfg.Storage.UseMemory = false
	}
	if v := os.Getenv("REPORT_OUTPUT_DIR"); v != "" {
		cfg.Reporting.OutputDir = v
	}
}

func (c *Config) validate() error {
	if c.Simulation.MaxRuns <= 0 {
		return fmt.Errorf("simulation.max_runs must be positive, got %d", c.Simulation.MaxRuns)
	}
	if c.Simulation.DefaultWorkers < 1 {
		return fmt.Errorf("simulation.default_workers must be at least 1, got %d", c.Simulation.DefaultWorkers)
	}
	if c.Simulation.DefaultRuns <= 0 || c.Simulation.DefaultRuns > c.Simulation.MaxRuns {
		return fmt.Errorf("simulation.default_runs must be in [1, max_runs], got %d", c.Simulation.DefaultRuns)
	}
	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required unless storage.use_memory is set")
	}
	return nil
}
