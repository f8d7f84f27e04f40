// Package config handles output paths and global configuration.
package config

import (
	"os"
	"path/filepath"
)

const (
	// DefaultOutputDir is where articles.db is written unless configured otherwise.
	DefaultOutputDir = "~/.cord19/models"
	// DBFile is the name of the output database.
	DBFile = "articles.db"
	// DefaultProgressEvery is the article count between progress reports.
	DefaultProgressEvery = 1000
	// DefaultWorkers processes rows strictly sequentially.
	DefaultWorkers = 1
	// DefaultLogLevel is the zap level used when none is configured.
	DefaultLogLevel = "info"
)

// OutputPath returns the expanded output directory.
func (c *Config) OutputPath() string {
	dir := c.OutputDir
	if dir == "" {
		dir = DefaultOutputDir
	}
	return ExpandPath(dir)
}

// DBPath returns the path to articles.db.
func (c *Config) DBPath() string {
	return filepath.Join(c.OutputPath(), DBFile)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
