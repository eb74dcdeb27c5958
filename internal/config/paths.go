package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeDirName is the per-project state directory holding config, logs and history
const HomeDirName = ".paircorpus"

// EnvHome overrides the home directory location
const EnvHome = "PAIRCORPUS_HOME"

// GetHome returns the paircorpus home directory
// Priority order:
//  1. PAIRCORPUS_HOME environment variable (if set)
//  2. <cwd>/.paircorpus
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	home := os.Getenv(EnvHome)
	if home == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		home = filepath.Join(cwd, HomeDirName)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create home directory: %w", err)
	}
	return home, nil
}

// ResolvePaths makes the configured directories absolute relative to base.
// State paths that still point into the default .paircorpus directory are
// rebased onto PAIRCORPUS_HOME when it is set.
func (c *Config) ResolvePaths(base string) {
	home := os.Getenv(EnvHome)
	rebase := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		if home != "" {
			if rel, err := filepath.Rel(HomeDirName, p); err == nil && filepath.IsLocal(rel) {
				return filepath.Join(home, rel)
			}
		}
		return filepath.Join(base, p)
	}

	c.MetadataDir = rebase(c.MetadataDir)
	c.OutputDir = rebase(c.OutputDir)
	c.CacheDir = rebase(c.CacheDir)
	c.LogDir = rebase(c.LogDir)
	c.History.DBPath = rebase(c.History.DBPath)
}
