package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CloneConfig controls how repositories are fetched into the cache
type CloneConfig struct {
	// Depth is the git clone depth (0 = full history)
	Depth int `yaml:"depth"`

	// MaxAttempts bounds clone attempts for transient transport errors
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay is the first backoff delay; it doubles after each attempt
	BaseDelay time.Duration `yaml:"base_delay"`

	// AttemptTimeout limits a single clone attempt (0 = no limit)
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// DemoConfig selects the subset of pairs processed by the demo command
type DemoConfig struct {
	// Programs is an allow-list of program names; when empty the first Limit pairs are used
	Programs []string `yaml:"programs"`

	// Limit is the number of pairs selected when Programs is empty
	Limit int `yaml:"limit"`
}

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the SQLite history database
	DBPath string `yaml:"db_path"`
}

// InventoryConfig represents source inventory configuration
type InventoryConfig struct {
	// Enabled counts functions and types in extracted sources after each pair
	Enabled bool `yaml:"enabled"`

	// CacheSize is the number of parsed files kept in the LRU cache
	CacheSize int `yaml:"cache_size"`
}

// PublishConfig describes the S3-compatible target of the publish command.
// Credentials are never read from YAML.
type PublishConfig struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	UseSSL   bool   `yaml:"use_ssl"`

	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// Config represents paircorpus configuration options
type Config struct {
	// MetadataDir is scanned recursively for metadata files
	MetadataDir string `yaml:"metadata_dir"`

	// OutputDir is the root of the materialized corpus
	OutputDir string `yaml:"output_dir"`

	// CacheDir is the repository cache root
	CacheDir string `yaml:"cache_dir"`

	// MaxWorkers is the number of pairs processed concurrently (0 = number of CPUs)
	MaxWorkers int `yaml:"max_workers"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs and reports are written
	LogDir string `yaml:"log_dir"`

	// Timeout bounds the whole run (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`

	Clone     CloneConfig     `yaml:"clone"`
	Demo      DemoConfig      `yaml:"demo"`
	History   HistoryConfig   `yaml:"history"`
	Inventory InventoryConfig `yaml:"inventory"`
	Publish   PublishConfig   `yaml:"publish"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		MetadataDir: "metadata",
		OutputDir:   "programs",
		CacheDir:    "repository_cache",
		MaxWorkers:  4,
		LogLevel:    "info",
		LogDir:      ".paircorpus/logs",
		Timeout:     2 * time.Hour,
		Clone: CloneConfig{
			Depth:          1,
			MaxAttempts:    3,
			BaseDelay:      2 * time.Second,
			AttemptTimeout: 15 * time.Minute,
		},
		Demo: DemoConfig{
			Programs: []string{},
			Limit:    5,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  ".paircorpus/history.db",
		},
		Inventory: InventoryConfig{
			Enabled:   true,
			CacheSize: 4096,
		},
		Publish: PublishConfig{
			Prefix: "corpus",
			UseSSL: true,
		},
	}
}

// yamlConfig mirrors Config with pointer fields so that keys present in the
// file override defaults even when set to a zero value.
type yamlConfig struct {
	MetadataDir *string `yaml:"metadata_dir"`
	OutputDir   *string `yaml:"output_dir"`
	CacheDir    *string `yaml:"cache_dir"`
	MaxWorkers  *int    `yaml:"max_workers"`
	LogLevel    *string `yaml:"log_level"`
	LogDir      *string `yaml:"log_dir"`
	Timeout     *string `yaml:"timeout"`

	Clone *struct {
		Depth          *int    `yaml:"depth"`
		MaxAttempts    *int    `yaml:"max_attempts"`
		BaseDelay      *string `yaml:"base_delay"`
		AttemptTimeout *string `yaml:"attempt_timeout"`
	} `yaml:"clone"`

	Demo *struct {
		Programs []string `yaml:"programs"`
		Limit    *int     `yaml:"limit"`
	} `yaml:"demo"`

	History *struct {
		Enabled *bool   `yaml:"enabled"`
		DBPath  *string `yaml:"db_path"`
	} `yaml:"history"`

	Inventory *struct {
		Enabled   *bool `yaml:"enabled"`
		CacheSize *int  `yaml:"cache_size"`
	} `yaml:"inventory"`

	Publish *struct {
		Endpoint *string `yaml:"endpoint"`
		Region   *string `yaml:"region"`
		Bucket   *string `yaml:"bucket"`
		Prefix   *string `yaml:"prefix"`
		UseSSL   *bool   `yaml:"use_ssl"`
	} `yaml:"publish"`
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&cfg.MetadataDir, y.MetadataDir)
	setString(&cfg.OutputDir, y.OutputDir)
	setString(&cfg.CacheDir, y.CacheDir)
	setInt(&cfg.MaxWorkers, y.MaxWorkers)
	setString(&cfg.LogLevel, y.LogLevel)
	setString(&cfg.LogDir, y.LogDir)
	if err := setDuration(&cfg.Timeout, y.Timeout, "timeout"); err != nil {
		return nil, err
	}

	if c := y.Clone; c != nil {
		setInt(&cfg.Clone.Depth, c.Depth)
		setInt(&cfg.Clone.MaxAttempts, c.MaxAttempts)
		if err := setDuration(&cfg.Clone.BaseDelay, c.BaseDelay, "clone.base_delay"); err != nil {
			return nil, err
		}
		if err := setDuration(&cfg.Clone.AttemptTimeout, c.AttemptTimeout, "clone.attempt_timeout"); err != nil {
			return nil, err
		}
	}

	if d := y.Demo; d != nil {
		if d.Programs != nil {
			cfg.Demo.Programs = d.Programs
		}
		setInt(&cfg.Demo.Limit, d.Limit)
	}

	if h := y.History; h != nil {
		setBool(&cfg.History.Enabled, h.Enabled)
		setString(&cfg.History.DBPath, h.DBPath)
	}

	if i := y.Inventory; i != nil {
		setBool(&cfg.Inventory.Enabled, i.Enabled)
		setInt(&cfg.Inventory.CacheSize, i.CacheSize)
	}

	if p := y.Publish; p != nil {
		setString(&cfg.Publish.Endpoint, p.Endpoint)
		setString(&cfg.Publish.Region, p.Region)
		setString(&cfg.Publish.Bucket, p.Bucket)
		setString(&cfg.Publish.Prefix, p.Prefix)
		setBool(&cfg.Publish.UseSSL, p.UseSSL)
	}

	return cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, field string) error {
	if v == nil || *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s format %q: %w", field, *v, err)
	}
	*dst = d
	return nil
}

// LoadConfigFromDir loads configuration from .paircorpus/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, HomeDirName, "config.yaml")
	return LoadConfig(configPath)
}

// FlagOverrides carries CLI flag values; nil fields were not set on the command line
type FlagOverrides struct {
	MetadataDir  *string
	OutputDir    *string
	CacheDir     *string
	MaxWorkers   *int
	LogLevel     *string
	LogDir       *string
	Timeout      *time.Duration
	DemoLimit    *int
	DemoPrograms []string
	NoHistory    *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f FlagOverrides) {
	setString(&c.MetadataDir, f.MetadataDir)
	setString(&c.OutputDir, f.OutputDir)
	setString(&c.CacheDir, f.CacheDir)
	setInt(&c.MaxWorkers, f.MaxWorkers)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogDir, f.LogDir)
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	setInt(&c.Demo.Limit, f.DemoLimit)
	if len(f.DemoPrograms) > 0 {
		c.Demo.Programs = f.DemoPrograms
	}
	if f.NoHistory != nil && *f.NoHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must be >= 0, got %d", c.MaxWorkers)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeout can be 0 (no timeout) or positive, negative is invalid
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir cannot be empty")
	}
	if filepath.Clean(c.OutputDir) == filepath.Clean(c.CacheDir) {
		return fmt.Errorf("output_dir and cache_dir must differ, both are %q", c.OutputDir)
	}

	if c.Clone.Depth < 0 {
		return fmt.Errorf("clone.depth must be >= 0, got %d", c.Clone.Depth)
	}
	if c.Clone.MaxAttempts < 1 {
		return fmt.Errorf("clone.max_attempts must be >= 1, got %d", c.Clone.MaxAttempts)
	}
	if c.Clone.BaseDelay < 0 {
		return fmt.Errorf("clone.base_delay must be >= 0, got %v", c.Clone.BaseDelay)
	}
	if c.Clone.AttemptTimeout < 0 {
		return fmt.Errorf("clone.attempt_timeout must be >= 0, got %v", c.Clone.AttemptTimeout)
	}

	if c.Demo.Limit < 1 {
		return fmt.Errorf("demo.limit must be >= 1, got %d", c.Demo.Limit)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	if c.Inventory.Enabled && c.Inventory.CacheSize < 1 {
		return fmt.Errorf("inventory.cache_size must be >= 1 when inventory is enabled, got %d", c.Inventory.CacheSize)
	}

	return nil
}

// ValidatePublish checks the fields required by the publish command
func (c *Config) ValidatePublish() error {
	if c.Publish.Endpoint == "" {
		return fmt.Errorf("publish.endpoint is required (or set %s)", EnvS3Endpoint)
	}
	if c.Publish.Bucket == "" {
		return fmt.Errorf("publish.bucket is required (or set %s)", EnvS3Bucket)
	}
	if c.Publish.AccessKey == "" || c.Publish.SecretKey == "" {
		return fmt.Errorf("S3 credentials missing: set %s and %s", EnvS3AccessKey, EnvS3SecretKey)
	}
	return nil
}
