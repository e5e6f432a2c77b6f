// Package config defines the layered configuration for the shmemsssp
// engine: defaults, an optional YAML file, environment variables, and
// finally the CLI's own positional arguments, in that priority order (see
// loader.go).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the fully resolved configuration for one run of the engine.
type Config struct {
	App       AppConfig       `koanf:"app"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Transport TransportConfig `koanf:"transport"`
	History   HistoryConfig   `koanf:"history"`
	RunLog    RunLogConfig    `koanf:"runlog"`
	Run       RunConfig       `koanf:"run"`
}

// AppConfig holds process-wide identity settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig configures the slog-based structured logger.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`     // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// TransportConfig selects and configures the PGAS backend.
type TransportConfig struct {
	// Backend is "local" (in-process, goroutine-per-peer) or "redis" (real
	// multi-process deployment).
	Backend string      `koanf:"backend"`
	Redis   RedisConfig `koanf:"redis"`
}

// RedisConfig configures the Redis transport backend.
type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// HistoryConfig configures the optional Postgres run-history store.
type HistoryConfig struct {
	Enabled        bool   `koanf:"enabled"`
	DSN            string `koanf:"dsn"`
	MigrationsPath string `koanf:"migrations_path"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
}

// RunLogConfig controls the JSONL structured run log, one entry per
// completed iteration, independent of stdout logging and the Postgres
// history store.
type RunLogConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Backend     string        `koanf:"backend"` // "stdout" or "file"
	FilePath    string        `koanf:"file_path"`
	BufferSize  int           `koanf:"buffer_size"`
	FlushPeriod time.Duration `koanf:"flush_period"`
}

// RunConfig holds the parameters that used to be the C binary's argv: the
// source vertex, direction mode, graph file, iteration count, and peer
// count, all now layered through the same config pipeline as everything
// else rather than read positionally — though the CLI still accepts them
// positionally and maps them in here (see cmd/shmemsssp/main.go).
type RunConfig struct {
	Source     int64  `koanf:"source"`
	Mode       string `koanf:"mode"` // "directed" or "undirected"
	GraphPath  string `koanf:"graph_path"`
	Iterations int    `koanf:"iterations"`
	Peers      int64  `koanf:"peers"`
}

// Validate checks the resolved configuration for internal consistency.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	switch c.Transport.Backend {
	case "local", "redis":
	default:
		errs = append(errs, fmt.Sprintf("transport.backend must be local or redis, got %s", c.Transport.Backend))
	}
	if c.Transport.Backend == "redis" && c.Transport.Redis.Addr == "" {
		errs = append(errs, "transport.redis.addr is required when transport.backend is redis")
	}

	switch c.Run.Mode {
	case "directed", "undirected":
	default:
		errs = append(errs, fmt.Sprintf("run.mode must be directed or undirected, got %s", c.Run.Mode))
	}
	if c.Run.GraphPath == "" {
		errs = append(errs, "run.graph_path is required")
	}
	if c.Run.Iterations <= 0 {
		errs = append(errs, fmt.Sprintf("run.iterations must be positive, got %d", c.Run.Iterations))
	}
	if c.Run.Peers <= 0 {
		errs = append(errs, fmt.Sprintf("run.peers must be positive, got %d", c.Run.Peers))
	}
	if c.Run.Source < 0 {
		errs = append(errs, fmt.Sprintf("run.source must be non-negative, got %d", c.Run.Source))
	}

	if c.History.Enabled && c.History.DSN == "" {
		errs = append(errs, "history.dsn is required when history.enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment reports whether the app is configured for development.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}
