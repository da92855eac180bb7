package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/harrison/dirtree/internal/cache"
	"github.com/harrison/dirtree/internal/config"
	"github.com/harrison/dirtree/internal/logger"
	"github.com/harrison/dirtree/internal/scheduler"
	"github.com/harrison/dirtree/internal/walk"
	"github.com/spf13/cobra"
)

// NewRefreshCommand creates the refresh subcommand
func NewRefreshCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh [root...]",
		Short: "Build the snapshot cache now",
		Long: `Walk all roots and atomically replace the snapshot cache with the result.
Unreadable directories are reported as warnings and do not prevent the
snapshot from being committed. If no snapshot can be written the previous
one is kept and the command fails.`,
		RunE: runRefresh,
	}
	addTraversalFlags(cmd)
	return cmd
}

// newScheduler wires a scheduler for cfg. The returned cleanup closes the
// history database.
func newScheduler(cfg *config.Config, log logger.Leveled) (*scheduler.Scheduler, func(), error) {
	hist, err := openHistory(cfg)
	if err != nil {
		return nil, nil, err
	}

	var recorder scheduler.Recorder
	cleanup := func() {}
	if hist != nil {
		recorder = hist
		cleanup = func() { hist.Close() }
	}

	s := scheduler.New(scheduler.Config{
		Roots:    cfg.Roots,
		Options:  cfg.WalkOptions(),
		Interval: cfg.RefreshInterval,
	}, cache.NewStore(cfg.CachePath), walk.NewWalker(nil), log, recorder)
	return s, cleanup, nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	s, cleanup, err := newScheduler(cfg, consoleLogger(cmd, cfg))
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := s.RefreshOnce(cmd.Context())
	if err != nil {
		return err
	}
	printRefreshSummary(cmd.OutOrStdout(), report, cfg.CachePath)
	return nil
}

func printRefreshSummary(w io.Writer, report *scheduler.Report, path string) {
	ok := color.New(color.FgGreen).Sprint("Committed")
	line := fmt.Sprintf("%s %d paths to %s", ok, report.Records, path)
	if n := len(report.Diagnostics); n > 0 {
		line += color.New(color.FgYellow).Sprintf(" (%d unreadable skipped)", n)
	}
	fmt.Fprintln(w, line)
}
