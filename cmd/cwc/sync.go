package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync sweep now",
		Long:  "Pushes every unsynced session to the backend, oldest first, and reports what happened. Safe to run any time; a sweep never loses local data.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	return cmd
}

func runSync(cmd *cobra.Command, configPath string) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	report, err := a.engine.SyncPending(cmd.Context(), a.cfg.Worker)
	if err != nil {
		return err
	}

	if report.Total == 0 {
		fmt.Fprintln(out, "Nothing to sync.")
		return nil
	}
	fmt.Fprintf(out, "Sweep: %s\n", report)
	for _, msg := range report.Messages {
		fmt.Fprintf(out, "  %s\n", msg)
	}
	if report.Offline {
		fmt.Fprintln(out, "Backend unreachable; remaining sessions stay queued.")
	}
	return nil
}
