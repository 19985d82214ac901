package config

import (
	"flag"
	"strings"
)

// flagFields maps flag names to the config field they set.
var flagFields = map[string]string{
	"state":          "state_file",
	"storage":        "storage",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"log-timestamps": "log_timestamps",
	"log-file":       "log_file",
	"metrics-file":   "metrics_file",
}

// parseFlags defines the global flags on fs, parses args, and marks every
// flag the user set as coming from the command line.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("nextup", flag.ContinueOnError)
	}

	fs.StringVar(&cfg.StateFile, "state", cfg.StateFile, "Path to state file")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "Storage backend: json or sqlite")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text, json, logfmt")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Include timestamps in log output")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append logs to this file instead of stderr")

	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus metrics to this textfile")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))

	if sources != nil {
		fs.Visit(func(f *flag.Flag) {
			if field, ok := flagFields[f.Name]; ok {
				sources[field] = SourceFlag
			}
		})
	}
	return nil
}
