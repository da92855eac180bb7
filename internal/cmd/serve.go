package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrison/dirtree/internal/cache"
	"github.com/harrison/dirtree/internal/logger"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve subcommand
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [root...]",
		Short: "Refresh the snapshot cache periodically until stopped",
		Long: `Run the refresh cycle immediately and then every --interval until
interrupted (SIGINT/SIGTERM). SIGHUP requests an immediate refresh.

Stopping during a refresh discards the snapshot in progress; the previous
snapshot stays in place. Detaching from the terminal is left to the process
supervisor (systemd, launchd, nohup).`,
		RunE: runServe,
	}
	addTraversalFlags(cmd)
	cmd.Flags().Duration("interval", 0, "Refresh period (default: config refresh_interval)")
	cmd.Flags().String("log-dir", "", "Also write logs to timestamped files in this directory")
	cmd.Flags().Bool("bootstrap", false, "Create an empty cache file before the first refresh")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	console := consoleLogger(cmd, cfg)
	log := logger.NewMultiLogger(console)
	if cfg.LogDir != "" {
		fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return err
		}
		defer fileLog.Close()
		log = logger.NewMultiLogger(console, fileLog)
		console.LogInfo(fmt.Sprintf("Logging to %s", fileLog.Path()))
	}

	if bootstrap, _ := cmd.Flags().GetBool("bootstrap"); bootstrap {
		if err := cache.NewStore(cfg.CachePath).EnsureExists(); err != nil {
			return err
		}
	}

	s, cleanup, err := newScheduler(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ctx := cmd.Context()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				s.Trigger()
			}
		}
	}()

	return s.Run(ctx)
}
