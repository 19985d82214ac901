package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/nextup/internal/logging"
	"github.com/nibzard/nextup/internal/store"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.nextup/nextup.toml or OS-specific config dir)
// 3. Project config file (nextup.toml or .nextup.toml in current directory)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
// Returns ConfigWithSources containing the config and a map of field names to their sources.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	sources := make(map[string]ConfigSource)
	cfg := &Config{}
	var files []string

	// 1. Set defaults (all fields start with default source)
	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}

	// 2. Try to load from user config file
	userConfigFile := findUserConfigFile()
	if userConfigFile != "" {
		if err := loadConfigFile(cfg, userConfigFile, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
		}
		files = append(files, userConfigFile)
	}

	// 3. Try to load from project config file (overrides user config)
	projectConfigFile := findProjectConfigFile()
	if projectConfigFile != "" {
		if err := loadConfigFile(cfg, projectConfigFile, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
		}
		files = append(files, projectConfigFile)
	}

	// 4. Override from environment
	loadFromEnv(cfg, sources)

	// 5. Parse CLI flags (they override everything)
	if err := parseFlags(cfg, fs, args, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Compute derived values
	if err := finalizeConfig(cfg, sources); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return &ConfigWithSources{
		Config:  cfg,
		Sources: sources,
		Files:   files,
	}, nil
}

// loadConfigFile decodes TOML config from path into cfg and marks every key
// the file defines as coming from source.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if sources == nil {
		return nil
	}
	for _, field := range configFields() {
		if md.IsDefined(field) {
			sources[field] = source
		}
	}
	return nil
}

// finalizeConfig computes derived values and validates settings.
func finalizeConfig(cfg *Config, sources map[string]ConfigSource) error {
	switch cfg.Storage {
	case store.BackendJSON, store.BackendSQLite:
	default:
		return fmt.Errorf("unknown storage %q (expected json|sqlite)", cfg.Storage)
	}
	if !logging.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	if !logging.ValidFormat(cfg.LogFormat) {
		return fmt.Errorf("unknown log format %q (expected text|json|logfmt)", cfg.LogFormat)
	}

	// The sqlite backend gets its own default file name.
	if cfg.Storage == store.BackendSQLite && sources["state_file"] == SourceDefault {
		cfg.StateFile = DefaultDatabaseFile
	}

	// Expand ~ in paths
	cfg.StateFile = expandPath(cfg.StateFile)
	cfg.LogFile = expandPath(cfg.LogFile)
	cfg.MetricsFile = expandPath(cfg.MetricsFile)

	// Determine project root
	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}

	// Make paths absolute if they're relative
	cfg.StateFile = absPath(cfg.ProjectRoot, cfg.StateFile)
	cfg.LogFile = absPath(cfg.ProjectRoot, cfg.LogFile)
	cfg.MetricsFile = absPath(cfg.ProjectRoot, cfg.MetricsFile)

	return nil
}
