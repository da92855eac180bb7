package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/harrison/dirtree/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history subcommand
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent refresh cycles",
		Long: `List recent refresh cycles, newest first, with their outcome.
A recent "committed" row with an old cache means readers are fine; a run of
"failed" rows means refresh itself is broken.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
	cmd.Flags().Int("limit", 10, "Number of cycles to show (0 = all)")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	hist, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if hist == nil {
		return fmt.Errorf("refresh history is disabled (history_db is empty)")
	}
	defer hist.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := hist.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if runs == nil {
			runs = []history.Run{}
		}
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No refresh cycles recorded")
		return nil
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(out, "%-19s  %-9s  %8s  %7s  %10s  %s\n", "STARTED", "STATUS", "PATHS", "SKIPPED", "DURATION", "ID")
	for _, r := range runs {
		fmt.Fprintf(out, "%-19s  %s  %8d  %7d  %10s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			statusColor(r.Status).Sprintf("%-9s", r.Status),
			r.Records,
			r.Diagnostics,
			r.Duration().Round(time.Millisecond),
			r.ID,
		)
		if r.Error != "" {
			fmt.Fprintf(out, "  error: %s\n", r.Error)
		}
	}
	return nil
}

func statusColor(status string) *color.Color {
	switch status {
	case history.StatusCommitted:
		return color.New(color.FgGreen)
	case history.StatusFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
