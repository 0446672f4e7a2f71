package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewclock/crewclock/internal/notify"
)

func newShiftEndCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "shift-end <shift-id>",
		Short: "End a shift, auto-closing any sessions still running",
		Long: `Auto-closes every session still in progress for the shift. Durations are
computed from each session's own start time. One batched close is pushed to
the backend; anything that cannot be delivered now syncs later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShiftEnd(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	return cmd
}

func runShiftEnd(cmd *cobra.Command, configPath, shiftID string) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	closedAt := time.Now()
	closed, err := a.lifecycle.AutoClose(cmd.Context(), shiftID, a.cfg.Worker, closedAt)
	if err != nil {
		return err
	}

	if closed == 0 {
		fmt.Fprintf(out, "Shift %s ended: no sessions were left running.\n", shiftID)
		return nil
	}
	fmt.Fprintf(out, "Shift %s ended: auto-closed %d session(s).\n", shiftID, closed)

	notifier, err := notify.FromConfig(a.cfg.Notify)
	if err != nil {
		return err
	}
	if notifier != nil {
		ev := notify.Event{
			Kind:     notify.KindAutoClose,
			WorkerID: a.cfg.Worker,
			Summary:  fmt.Sprintf("%d session(s) auto-closed at shift end", closed),
			Detail:   fmt.Sprintf("shift %s, worker %s", shiftID, a.cfg.Worker),
			At:       closedAt,
		}
		if err := notifier.Send(cmd.Context(), ev); err != nil {
			log.Printf("cwc: notify: %v", err)
		}
	}
	return nil
}

func newShiftLinkCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "shift-link <local-shift-id> <remote-shift-id>",
		Short: "Record a local-to-remote shift id mapping",
		Long:  "Sessions cannot sync until their shift's backend id is known. This records the mapping, normally learned automatically when the shift itself syncs.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShiftLink(cmd, configPath, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	return cmd
}

func runShiftLink(cmd *cobra.Command, configPath, localID, remoteID string) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	if err := a.store.PutShiftLink(localID, remoteID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Shift %s linked to backend shift %s\n", localID, remoteID)
	return nil
}
