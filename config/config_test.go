package config

import (
	"log/slog"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PASTA_LOG_LEVEL", "PASTA_LOG_FORMAT", "PASTA_LOAD_WORKERS", "PASTA_QUIET"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if cfg.LoadWorkers <= 0 {
		t.Errorf("LoadWorkers = %d, want positive", cfg.LoadWorkers)
	}
	if cfg.Quiet {
		t.Error("Quiet should default to false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PASTA_LOG_LEVEL", "debug")
	t.Setenv("PASTA_LOG_FORMAT", "json")
	t.Setenv("PASTA_LOAD_WORKERS", "3")
	t.Setenv("PASTA_QUIET", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" || cfg.LoadWorkers != 3 || !cfg.Quiet {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PASTA_LOG_LEVEL":    "loud",
		"PASTA_LOG_FORMAT":   "xml",
		"PASTA_LOAD_WORKERS": "many",
		"PASTA_QUIET":        "perhaps",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%q should fail validation", key, value)
			}
		})
	}
}

func TestLoadRejectsNonPositiveWorkers(t *testing.T) {
	clearEnv(t)
	t.Setenv("PASTA_LOAD_WORKERS", "0")
	if _, err := Load(); err == nil {
		t.Error("zero workers should fail validation")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"anything-else", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Errorf("parseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
