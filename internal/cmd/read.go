package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/dirtree/internal/cache"
	"github.com/spf13/cobra"
)

// NewReadCommand creates the read subcommand
func NewReadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print the most recent snapshot",
		Long: `Print the snapshot committed by the last refresh without touching the
filesystem tree. The snapshot may be up to one refresh interval old.

Fails with a distinct "cache not built" error when no snapshot exists, so an
empty result always means the walked subtrees really were empty.`,
		Args: cobra.NoArgs,
		RunE: runRead,
	}
	cmd.Flags().String("match", "", "Only print paths containing this substring")
	return cmd
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	store := cache.NewStore(cfg.CachePath)
	content, err := store.Read()
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return fmt.Errorf("cache not built yet at %s (run 'dirtree refresh'): %w", cfg.CachePath, err)
		}
		return err
	}

	match, _ := cmd.Flags().GetString("match")
	out := cmd.OutOrStdout()
	if match == "" {
		_, err := fmt.Fprint(out, content)
		return err
	}
	for _, line := range cache.Decode(content) {
		if strings.Contains(line, match) {
			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}
		}
	}
	return nil
}
