package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/paircorpus/internal/config"
)

// addGlobalFlags registers the flags shared by every command.
func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("config", "", "Path to config file (default: .paircorpus/config.yaml)")
	f.String("metadata-dir", "", "Directory scanned for metadata files")
	f.String("output-dir", "", "Root of the materialized corpus")
	f.String("cache-dir", "", "Repository cache directory")
	f.String("log-level", "", "Log level: trace, debug, info, warn, error")
	f.String("log-dir", "", "Directory for run logs and reports")
	f.Bool("verbose", false, "Shorthand for --log-level debug")
}

// loadConfig builds the effective configuration for cmd: .env, config file,
// changed flags, environment, then path resolution against the working directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	config.LoadDotEnv(filepath.Join(cwd, ".env"))

	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(cwd)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithFlags(overrides)
	cfg.ApplyEnv()
	cfg.ResolvePaths(cwd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// flagOverrides collects only the flags that were set on the command line.
func flagOverrides(cmd *cobra.Command) (config.FlagOverrides, error) {
	var o config.FlagOverrides
	flags := cmd.Flags()

	stringFlag := func(name string) *string {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	intFlag := func(name string) *int {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetInt(name)
		return &v
	}

	o.MetadataDir = stringFlag("metadata-dir")
	o.OutputDir = stringFlag("output-dir")
	o.CacheDir = stringFlag("cache-dir")
	o.LogLevel = stringFlag("log-level")
	o.LogDir = stringFlag("log-dir")
	o.MaxWorkers = intFlag("max-workers")
	o.DemoLimit = intFlag("limit")

	if verbose, _ := flags.GetBool("verbose"); verbose && o.LogLevel == nil {
		debug := "debug"
		o.LogLevel = &debug
	}

	if flags.Lookup("timeout") != nil && flags.Changed("timeout") {
		timeout, err := flags.GetDuration("timeout")
		if err != nil {
			return o, fmt.Errorf("invalid timeout: %w", err)
		}
		o.Timeout = &timeout
	}
	if flags.Lookup("program") != nil && flags.Changed("program") {
		o.DemoPrograms, _ = flags.GetStringSlice("program")
	}
	if flags.Lookup("no-history") != nil && flags.Changed("no-history") {
		v, _ := flags.GetBool("no-history")
		o.NoHistory = &v
	}
	return o, nil
}
