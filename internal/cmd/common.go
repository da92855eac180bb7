package cmd

import (
	"fmt"
	"os"

	"github.com/harrison/dirtree/internal/config"
	"github.com/harrison/dirtree/internal/history"
	"github.com/harrison/dirtree/internal/logger"
	"github.com/harrison/dirtree/internal/walk"
	"github.com/spf13/cobra"
)

// addTraversalFlags registers the flags shared by commands that walk roots.
func addTraversalFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("forbidden", "f", nil, "Directory name prefix to prune; repeatable (added to config)")
	cmd.Flags().IntP("max-depth", "d", walk.Unlimited, "Maximum depth below each root (0 = roots only)")
	cmd.Flags().Bool("parallel", false, "Walk roots concurrently")
}

// loadConfig reads the config file and applies any flags the user set.
// Positional roots replace configured roots.
func loadConfig(cmd *cobra.Command, roots []string) (*config.Config, error) {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cwd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", wdErr)
		}
		cfg, err = config.LoadConfigFromDir(cwd)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := config.Flags{Roots: roots}
	if flags.Lookup("forbidden") != nil {
		overrides.Forbidden, _ = flags.GetStringArray("forbidden")
	}
	if flags.Changed("max-depth") {
		v, _ := flags.GetInt("max-depth")
		overrides.MaxDepth = &v
	}
	if flags.Changed("parallel") {
		v, _ := flags.GetBool("parallel")
		overrides.ParallelRoots = &v
	}
	if flags.Changed("interval") {
		v, _ := flags.GetDuration("interval")
		overrides.Interval = &v
	}
	if flags.Changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		overrides.LogDir = &v
	}
	if flags.Changed("cache") {
		v, _ := flags.GetString("cache")
		overrides.CachePath = &v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		overrides.LogLevel = &v
	}
	if flags.Changed("history-db") {
		v, _ := flags.GetString("history-db")
		overrides.HistoryDB = &v
	}
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// consoleLogger logs to the command's stderr at the configured level.
func consoleLogger(cmd *cobra.Command, cfg *config.Config) *logger.ConsoleLogger {
	return logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
}

// openHistory opens the refresh history database, or returns nil when
// history is disabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}

func logDiagnostics(log logger.Leveled, diagnostics []error) {
	for _, d := range diagnostics {
		log.LogWarn(fmt.Sprintf("Skipped unreadable directory: %v", d))
	}
}
