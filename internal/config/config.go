package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/dirtree/internal/logger"
	"github.com/harrison/dirtree/internal/walk"
	"gopkg.in/yaml.v3"
)

// Config represents dirtree configuration options
type Config struct {
	// Roots are the directories every walk and refresh starts from
	Roots []string `yaml:"roots"`

	// Forbidden lists directory name prefixes that are pruned from traversal
	Forbidden []string `yaml:"forbidden"`

	// MaxDepth is the depth budget per root (walk.Unlimited by default)
	MaxDepth int `yaml:"max_depth"`

	// CachePath is the snapshot file written by refresh and read by queries
	CachePath string `yaml:"cache_path"`

	// RefreshInterval is the period of the background refresh loop
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// ParallelRoots walks roots concurrently during refresh
	ParallelRoots bool `yaml:"parallel_roots"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is where the refresh loop writes its log files ("" = console only)
	LogDir string `yaml:"log_dir"`

	// HistoryDB is the SQLite database recording refresh cycles ("" = disabled)
	HistoryDB string `yaml:"history_db"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Roots:           nil,
		Forbidden:       []string{"."},
		MaxDepth:        walk.Unlimited,
		CachePath:       DefaultCachePath(),
		RefreshInterval: time.Hour,
		ParallelRoots:   false,
		LogLevel:        "info",
		LogDir:          "",
		HistoryDB:       DefaultHistoryPath(),
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML; pointers mark which keys were present.
	type yamlConfig struct {
		Roots           []string `yaml:"roots"`
		Forbidden       []string `yaml:"forbidden"`
		MaxDepth        *int     `yaml:"max_depth"`
		CachePath       string   `yaml:"cache_path"`
		RefreshInterval string   `yaml:"refresh_interval"`
		ParallelRoots   *bool    `yaml:"parallel_roots"`
		LogLevel        string   `yaml:"log_level"`
		LogDir          *string  `yaml:"log_dir"`
		HistoryDB       *string  `yaml:"history_db"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Roots != nil {
		cfg.Roots = yamlCfg.Roots
	}
	// An explicit empty list disables pruning.
	if yamlCfg.Forbidden != nil {
		cfg.Forbidden = yamlCfg.Forbidden
	}
	if yamlCfg.MaxDepth != nil {
		cfg.MaxDepth = *yamlCfg.MaxDepth
	}
	if yamlCfg.CachePath != "" {
		cfg.CachePath = expandHome(yamlCfg.CachePath)
	}
	if yamlCfg.RefreshInterval != "" {
		interval, err := time.ParseDuration(yamlCfg.RefreshInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid refresh_interval format %q: %w", yamlCfg.RefreshInterval, err)
		}
		cfg.RefreshInterval = interval
	}
	if yamlCfg.ParallelRoots != nil {
		cfg.ParallelRoots = *yamlCfg.ParallelRoots
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != nil {
		cfg.LogDir = expandHome(*yamlCfg.LogDir)
	}
	// history_db: "" explicitly disables the history database.
	if yamlCfg.HistoryDB != nil {
		cfg.HistoryDB = expandHome(*yamlCfg.HistoryDB)
	}

	for i, root := range cfg.Roots {
		cfg.Roots[i] = expandHome(root)
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .dirtree/config.yaml in the specified directory
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".dirtree", "config.yaml"))
}

// Flags carries CLI overrides. Nil fields leave the configuration unchanged.
type Flags struct {
	Roots         []string
	Forbidden     []string
	MaxDepth      *int
	CachePath     *string
	Interval      *time.Duration
	ParallelRoots *bool
	LogLevel      *string
	LogDir        *string
	HistoryDB     *string
}

// MergeWithFlags merges CLI flags into the configuration.
// Flags take precedence over config file settings. Forbidden prefixes given
// on the command line are appended to the configured ones.
func (c *Config) MergeWithFlags(f Flags) {
	if len(f.Roots) > 0 {
		c.Roots = f.Roots
	}
	if len(f.Forbidden) > 0 {
		c.Forbidden = append(append([]string{}, c.Forbidden...), f.Forbidden...)
	}
	if f.MaxDepth != nil {
		c.MaxDepth = *f.MaxDepth
	}
	if f.CachePath != nil {
		c.CachePath = *f.CachePath
	}
	if f.Interval != nil {
		c.RefreshInterval = *f.Interval
	}
	if f.ParallelRoots != nil {
		c.ParallelRoots = *f.ParallelRoots
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.HistoryDB != nil {
		c.HistoryDB = *f.HistoryDB
	}
}

// Validate validates the configuration values.
// Empty root entries are rejected with walk.ErrInvalidInput. Having no roots
// at all is not checked here because read-only commands do not need any.
func (c *Config) Validate() error {
	for i, root := range c.Roots {
		if root == "" {
			return fmt.Errorf("%w: roots[%d] is empty", walk.ErrInvalidInput, i)
		}
	}

	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be > 0, got %v", c.RefreshInterval)
	}

	if c.CachePath == "" {
		return fmt.Errorf("cache_path cannot be empty")
	}

	return nil
}

// WalkOptions returns the traversal options described by the configuration.
func (c *Config) WalkOptions() walk.Options {
	return walk.Options{
		Forbidden: c.Forbidden,
		MaxDepth:  c.MaxDepth,
		Parallel:  c.ParallelRoots,
	}
}
