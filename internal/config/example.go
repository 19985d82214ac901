package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# nextup configuration file
# Values can be overridden by NEXTUP_* environment variables or CLI flags

# State file (relative to project root)
state_file = ".nextup/tasks.json"

# Storage backend: "json" or "sqlite"
# With sqlite and no state_file set, the default is .nextup/tasks.db
storage = "json"

# Logging: debug, info, warn, error
log_level = "warn"

# Log format: text, json, logfmt
log_format = "text"

# Include timestamps in log lines
log_timestamps = false

# Append logs to a file instead of stderr
# log_file = "~/.nextup/nextup.log"

# Write Prometheus metrics in textfile format after every command
# metrics_file = ".nextup/metrics.prom"
`
}
