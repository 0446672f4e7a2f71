package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/crewclock/crewclock/internal/models"
	"github.com/crewclock/crewclock/internal/session"
)

func newCompleteCmd() *cobra.Command {
	var (
		configPath string
		pos        positionFlags
	)

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Complete the active session",
		Long:  "Completes the worker's active session, recording the end time and duration. Works offline; the completion is synced later.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, configPath, &pos)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	pos.register(cmd)
	return cmd
}

func runComplete(cmd *cobra.Command, configPath string, pos *positionFlags) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	sess, err := a.lifecycle.Complete(cmd.Context(), a.cfg.Worker, pos.position(cmd))
	if err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			return fmt.Errorf("no active session to complete")
		}
		return err
	}

	fmt.Fprintf(out, "Completed %s session %s at %s: %s\n",
		sess.Kind, sess.ID, describeLocation(sess.BuildingID, sess.UnitID),
		formatMinutes(sess.DurationMinutes))
	reportSyncState(out, sess)
	return nil
}

func newCloseCmd() *cobra.Command {
	var (
		configPath string
		pos        positionFlags
	)

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close the active session without marking it done",
		Long:  "Manually closes the active session, for when work stopped without a proper completion (end of day, interruption). A no-op when nothing is running.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClose(cmd, configPath, &pos)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	pos.register(cmd)
	return cmd
}

func runClose(cmd *cobra.Command, configPath string, pos *positionFlags) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	sess, err := a.lifecycle.ManualClose(cmd.Context(), a.cfg.Worker, pos.position(cmd))
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Fprintln(out, "No active session; nothing to close.")
		return nil
	}

	fmt.Fprintf(out, "Closed %s session %s after %s\n",
		sess.Kind, sess.ID, formatMinutes(sess.DurationMinutes))
	reportSyncState(out, sess)
	return nil
}

func reportSyncState(out io.Writer, sess *models.Session) {
	if sess.SyncStatus != models.SyncSynced {
		fmt.Fprintln(out, "Not yet synced; the background sweep will deliver it.")
	}
}
