package cmd

import (
	"fmt"
	"time"

	"github.com/harrison/dirtree/internal/walk"
	"github.com/spf13/cobra"
)

// NewRecentCommand creates the recent subcommand
func NewRecentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent [root...]",
		Short: "List files modified in the last N days",
		Long: `Walk the roots with the usual pruning and depth rules and print every
regular file modified within the last --days days, prefixed by its
modification time.`,
		RunE: runRecent,
	}
	addTraversalFlags(cmd)
	cmd.Flags().Int("days", 7, "Report files modified within this many days")
	return cmd
}

func runRecent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	days, _ := cmd.Flags().GetInt("days")
	if days < 0 {
		return fmt.Errorf("--days must be >= 0, got %d", days)
	}

	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	out := cmd.OutOrStdout()
	res, err := walk.NewWalker(nil).Recent(cmd.Context(), cfg.Roots, cfg.WalkOptions(), since, func(f walk.RecentFile) error {
		_, err := fmt.Fprintf(out, "%s  %s\n", f.ModTime.Format("2006-01-02 15:04"), f.Path)
		return err
	})
	logDiagnostics(consoleLogger(cmd, cfg), res.Diagnostics)
	if err != nil {
		return fmt.Errorf("recent failed: %w", err)
	}
	return nil
}
