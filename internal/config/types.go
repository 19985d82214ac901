package config

import (
	"github.com/nibzard/nextup/internal/statedir"
	"github.com/nibzard/nextup/internal/store"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource

	// Files lists the config files that were read, lowest priority first.
	Files []string
}

// Default values.
var (
	DefaultStateFile    = statedir.StatePath("")
	DefaultDatabaseFile = statedir.DatabasePath("")
)

const (
	DefaultStorage   = store.BackendJSON
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Config holds the full configuration for nextup.
type Config struct {
	// State storage
	StateFile string `toml:"state_file"`
	Storage   string `toml:"storage"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogFile       string `toml:"log_file"`

	// Prometheus textfile written after every command (empty disables)
	MetricsFile string `toml:"metrics_file"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"state_file",
		"storage",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_file",
		"metrics_file",
	}
}

// Get returns the string form of a configurable field.
func (c *Config) Get(field string) string {
	switch field {
	case "state_file":
		return c.StateFile
	case "storage":
		return c.Storage
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "log_timestamps":
		if c.LogTimestamps {
			return "true"
		}
		return "false"
	case "log_file":
		return c.LogFile
	case "metrics_file":
		return c.MetricsFile
	}
	return ""
}

// Fields returns the configurable field names in display order.
func Fields() []string {
	return configFields()
}
