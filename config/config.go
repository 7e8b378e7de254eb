// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the tool's runtime settings. Paths come from the command
// line; everything here is tuning.
type Config struct {
	LogLevel    string // PASTA_LOG_LEVEL: debug, info, warn, error
	LogFormat   string // PASTA_LOG_FORMAT: text, json
	LoadWorkers int    // PASTA_LOAD_WORKERS: parallel table loads
	Quiet       bool   // PASTA_QUIET: suppress progress bars
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment variables
// win over .env entries.
func Load() (*Config, error) {
	// godotenv.Load does not override variables already set, which is the
	// precedence we want.
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:    envOr("PASTA_LOG_LEVEL", "info"),
		LogFormat:   envOr("PASTA_LOG_FORMAT", "text"),
		LoadWorkers: runtime.NumCPU(),
	}

	if v := os.Getenv("PASTA_LOAD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PASTA_LOAD_WORKERS %q: %w", v, err)
		}
		cfg.LoadWorkers = n
	}
	if v := os.Getenv("PASTA_QUIET"); v != "" {
		q, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PASTA_QUIET %q: %w", v, err)
		}
		cfg.Quiet = q
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []string

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("PASTA_LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("PASTA_LOG_FORMAT (%q) must be one of: text, json", c.LogFormat))
	}
	if c.LoadWorkers <= 0 {
		errs = append(errs, "PASTA_LOAD_WORKERS must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// NewLogger builds a slog logger per the config. Diagnostics share stderr
// with nothing else; stdout is reserved for command output.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
