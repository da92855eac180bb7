package cmd

import (
	"fmt"

	"github.com/harrison/dirtree/internal/walk"
	"github.com/spf13/cobra"
)

// NewWalkCommand creates the walk subcommand
func NewWalkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walk [root...]",
		Short: "Stream directories under the roots to stdout",
		Long: `Walk each root live and print every directory found, one per line, in
discovery order. Roots given as arguments replace the configured roots.

Examples:
  dirtree walk ~/src -f . -f node_modules -d 3
  dirtree walk /srv /opt --parallel`,
		RunE: runWalk,
	}
	addTraversalFlags(cmd)
	return cmd
}

func runWalk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	log := consoleLogger(cmd, cfg)

	out := walk.NewStreamEmitter(cmd.OutOrStdout())
	res, walkErr := walk.NewWalker(nil).WalkRoots(cmd.Context(), cfg.Roots, cfg.WalkOptions(), out)
	flushErr := out.Flush()

	logDiagnostics(log, res.Diagnostics)
	log.LogDebug(fmt.Sprintf("Walked %d directories (%d skipped)", res.Records, len(res.Diagnostics)))

	if walkErr != nil {
		return fmt.Errorf("walk failed: %w", walkErr)
	}
	if flushErr != nil {
		return fmt.Errorf("failed to write output: %w", flushErr)
	}
	return nil
}
