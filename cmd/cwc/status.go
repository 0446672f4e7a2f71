package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active session and sync backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Worker: %s\n", a.cfg.Worker)

	active, err := a.lifecycle.Active(a.cfg.Worker)
	if err != nil {
		return err
	}
	if active == nil {
		fmt.Fprintln(out, "Active session: none")
	} else {
		elapsed := time.Since(active.StartedAt).Minutes()
		fmt.Fprintf(out, "Active session: %s %s at %s, running %s (shift %s, sync %s)\n",
			active.Kind, active.ID, describeLocation(active.BuildingID, active.UnitID),
			formatMinutes(elapsed), active.ShiftID, active.SyncStatus)
	}

	pending, err := a.store.ListPendingSync(a.cfg.Worker)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Unsynced sessions: %d\n", len(pending))
	for _, p := range pending {
		fmt.Fprintf(out, "  %s  %-12s %-15s sync=%s\n", p.ID, p.Kind, p.Status, p.SyncStatus)
	}

	state, err := a.store.SweepState(a.cfg.Worker)
	if err != nil {
		return err
	}
	if state == nil || state.LastSweepAt == nil {
		fmt.Fprintln(out, "Last sweep: never")
		return nil
	}
	line := fmt.Sprintf("Last sweep: %s (%d synced, %d skipped, %d errors)",
		state.LastSweepAt.Format(time.RFC3339), state.LastSynced, state.LastSkipped, state.LastErrors)
	fmt.Fprintln(out, line)
	if state.LastError != "" {
		fmt.Fprintf(out, "Last sweep errors: %s\n", state.LastError)
	}
	return nil
}
