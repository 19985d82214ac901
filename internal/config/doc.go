// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.nextup/nextup.toml or OS-specific config directory)
// 3. Project config file (nextup.toml or .nextup.toml in the project root)
// 4. Environment variables (NEXTUP_*)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
//
// User-level config locations:
// - ~/.nextup/nextup.toml (preferred)
// - Windows: %APPDATA%\nextup\nextup.toml
// - macOS: ~/Library/Application Support/nextup/nextup.toml
// - Linux/BSD: $XDG_CONFIG_HOME/nextup/nextup.toml or ~/.config/nextup/nextup.toml
//
// Project-level config locations (overrides user config):
// - ./nextup.toml (preferred)
// - ./.nextup.toml
package config
