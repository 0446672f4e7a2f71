package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crewclock/crewclock/internal/dashboard"
	"github.com/crewclock/crewclock/internal/notify"
	"github.com/crewclock/crewclock/internal/syncer"
)

func newDaemonCmd() *cobra.Command {
	var (
		configPath  string
		noDashboard bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background sync runner and local dashboard",
		Long: `Runs until interrupted: sweeps unsynced sessions on the configured
interval (plus the optional cron schedule) and serves the read-only JSON
dashboard on the configured port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, configPath, noDashboard)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "run the sync runner only")
	return cmd
}

func runDaemon(cmd *cobra.Command, configPath string, noDashboard bool) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	notifier, err := notify.FromConfig(a.cfg.Notify)
	if err != nil {
		return err
	}

	runner, err := syncer.NewRunner(syncer.RunnerOpts{
		Store:    a.store,
		Engine:   a.engine,
		WorkerID: a.cfg.Worker,
		Interval: a.cfg.Sync.Interval.Std(),
		Schedule: a.cfg.Sync.Schedule,
		Notifier: notifier,
		Out:      out,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	// SIGUSR1 is the external connectivity-regained hook: network managers
	// and wrapper scripts can prod the runner to sweep immediately.
	reconnCh := make(chan os.Signal, 1)
	signal.Notify(reconnCh, syscall.SIGUSR1)
	go func() {
		for range reconnCh {
			runner.NotifyReconnected()
		}
	}()

	if !noDashboard {
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{
				DB:       a.gdb,
				WorkerID: a.cfg.Worker,
				Port:     a.cfg.Dashboard.Port,
				Out:      out,
			})
			if err != nil {
				log.Printf("cwc: dashboard: %v", err)
			}
		}()
	}

	return runner.Run(ctx)
}
