package config

import (
	"os"
	"strings"
)

// loadFromEnv overrides config from environment variables and updates
// source tracking when sources is non-nil.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) {
	setEnv := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}

	if v := os.Getenv("NEXTUP_STATE"); v != "" {
		cfg.StateFile = v
		setEnv("state_file")
	}
	if v := os.Getenv("NEXTUP_STORAGE"); v != "" {
		cfg.Storage = strings.ToLower(strings.TrimSpace(v))
		setEnv("storage")
	}
	if v := os.Getenv("NEXTUP_METRICS_FILE"); v != "" {
		cfg.MetricsFile = v
		setEnv("metrics_file")
	}

	// Logging configuration
	if v := os.Getenv("NEXTUP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
		setEnv("log_level")
	}
	if v := os.Getenv("NEXTUP_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
		setEnv("log_format")
	}
	if v := os.Getenv("NEXTUP_LOG_TIMESTAMPS"); v != "" {
		cfg.LogTimestamps = boolFromString(v)
		setEnv("log_timestamps")
	}
	if v := os.Getenv("NEXTUP_LOG_FILE"); v != "" {
		cfg.LogFile = v
		setEnv("log_file")
	}
}

// boolFromString parses common truthy strings.
func boolFromString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
