package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for dirtree
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirtree",
		Short: "Directory tree enumeration with a refreshable snapshot cache",
		Long: `dirtree lists directory subtrees under one or more roots, pruning any
directory whose name starts with a forbidden prefix, down to a maximum depth.

Results are streamed live (walk) or written to a snapshot cache (refresh,
serve) that later queries read instantly (read). The snapshot is replaced
atomically, so readers never see a half-written cache.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .dirtree/config.yaml)")
	cmd.PersistentFlags().String("cache", "", "Snapshot cache file (default: per-user cache directory)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("history-db", "", "Refresh history database (empty config value disables history)")

	cmd.AddCommand(NewWalkCommand())
	cmd.AddCommand(NewRefreshCommand())
	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewReadCommand())
	cmd.AddCommand(NewRecentCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
