// Package config loads treeline's runtime configuration.
//
// MCP hosts hand servers their settings through the environment block
// of the mcpServers entry, so everything is an environment variable. A
// .env file in the working directory is honored for local development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting treeline reads from the environment.
type Config struct {
	// WorkFlowy credentials. The server refuses to start without them.
	Username string `env:"WORKFLOWY_USERNAME,notEmpty"`
	Password string `env:"WORKFLOWY_PASSWORD,notEmpty"`

	// BaseURL overrides the WorkFlowy endpoint, mainly for tests and
	// self-hosted proxies. Empty means the public service.
	BaseURL string `env:"WORKFLOWY_BASE_URL"`

	// DataDir is where treeline keeps its log and metrics database.
	// Defaults to ~/.treeline.
	DataDir string `env:"TREELINE_DATA_DIR"`

	// LogFile is the JSONL log path. Defaults to <DataDir>/treeline.log.
	LogFile string `env:"TREELINE_LOG_FILE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"TREELINE_LOG_LEVEL" envDefault:"info"`

	// LogConsole echoes log records to stderr. Stdout stays reserved
	// for the MCP transport.
	LogConsole bool `env:"TREELINE_LOG_CONSOLE" envDefault:"false"`

	// MetricsDB is the SQLite file for operation metrics. Defaults to
	// <DataDir>/metrics.db.
	MetricsDB string `env:"TREELINE_METRICS_DB"`

	// HTTPTimeout bounds every WorkFlowy API call.
	HTTPTimeout time.Duration `env:"TREELINE_HTTP_TIMEOUT" envDefault:"30s"`
}

// Load reads the .env file if present, then parses the environment and
// fills in the derived defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolving home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".treeline")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "treeline.log")
	}
	if cfg.MetricsDB == "" {
		cfg.MetricsDB = filepath.Join(cfg.DataDir, "metrics.db")
	}

	return cfg, nil
}
