package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewclock/crewclock/internal/session"
)

func newStartCmd() *cobra.Command {
	var (
		configPath string
		shiftID    string
		unitID     string
		notes      string
		pos        positionFlags
	)

	cmd := &cobra.Command{
		Use:   "start <kind> <building-id>",
		Short: "Start a timed work session",
		Long: `Starts a cleaning or maintenance session at a building. The session is
recorded locally first and registered with the backend best-effort; it is
fully usable with no connectivity at all.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, configPath, args[0], args[1], shiftID, unitID, notes, &pos)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	cmd.Flags().StringVar(&shiftID, "shift", "", "local shift id the session belongs to (required)")
	cmd.Flags().StringVar(&unitID, "unit", "", "unit within the building")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	pos.register(cmd)
	cmd.MarkFlagRequired("shift")
	return cmd
}

func runStart(cmd *cobra.Command, configPath, kind, buildingID, shiftID, unitID, notes string, pos *positionFlags) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	result, err := a.lifecycle.Start(cmd.Context(), session.StartOpts{
		WorkerID:   a.cfg.Worker,
		ShiftID:    shiftID,
		Kind:       kind,
		BuildingID: buildingID,
		UnitID:     unitID,
		Start:      pos.position(cmd),
		Notes:      notes,
	})
	if err != nil {
		var active *session.ActiveSessionError
		if errors.As(err, &active) {
			return fmt.Errorf("a %s session is already running at %s; complete or close it first",
				active.Kind, describeLocation(active.BuildingID, active.UnitID))
		}
		return err
	}

	sess := result.Session
	fmt.Fprintf(out, "Started %s session %s at %s (%s)\n",
		sess.Kind, sess.ID, describeLocation(sess.BuildingID, sess.UnitID),
		sess.StartedAt.Format(time.Kitchen))
	if result.Warning != "" {
		fmt.Fprintf(out, "Warning: backend rejected registration: %s\n", result.Warning)
		fmt.Fprintln(out, "The session is recorded locally and will be retried by sync.")
	} else if sess.RemoteID == nil {
		fmt.Fprintln(out, "Offline: session saved locally, will sync when connectivity returns.")
	}
	return nil
}

func describeLocation(buildingID, unitID string) string {
	if unitID == "" {
		return buildingID
	}
	return buildingID + "/" + unitID
}

func formatMinutes(m float64) string {
	if m < 60 {
		return fmt.Sprintf("%.0fm", m)
	}
	h := int(m) / 60
	return fmt.Sprintf("%dh%02dm", h, int(m)%60)
}
