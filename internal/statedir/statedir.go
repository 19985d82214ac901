// Package statedir provides constants and utilities for the .nextup directory structure.
package statedir

import "path/filepath"

const (
	// Dir is the name of the nextup state directory.
	Dir = ".nextup"

	// DefaultStateFile is the default JSON state file name (inside .nextup).
	DefaultStateFile = "tasks.json"

	// DefaultDatabaseFile is the default SQLite database name (inside .nextup).
	DefaultDatabaseFile = "tasks.db"

	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "nextup.toml"
)

// StatePath returns the full path to the JSON state file within a work directory.
func StatePath(workDir string) string {
	return joinPath(workDir, DefaultStateFile)
}

// DatabasePath returns the full path to the SQLite database within a work directory.
func DatabasePath(workDir string) string {
	return joinPath(workDir, DefaultDatabaseFile)
}

// ConfigPath returns the full path to the project config file within a work directory.
// The project config lives next to .nextup, not inside it.
func ConfigPath(workDir string) string {
	if workDir == "." || workDir == "" {
		return DefaultConfigFile
	}
	return filepath.Join(workDir, DefaultConfigFile)
}

// DirPath returns the full path to the .nextup directory within a work directory.
func DirPath(workDir string) string {
	if workDir == "." || workDir == "" {
		return Dir
	}
	return filepath.Join(workDir, Dir)
}

func joinPath(workDir, file string) string {
	return filepath.Join(DirPath(workDir), file)
}
