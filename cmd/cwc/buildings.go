package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewclock/crewclock/internal/models"
	"github.com/crewclock/crewclock/internal/remote"
)

func newBuildingsCmd() *cobra.Command {
	var (
		configPath string
		refresh    bool
		unitsFor   string
	)

	cmd := &cobra.Command{
		Use:   "buildings",
		Short: "List the cached buildings and units",
		Long:  "Lists the reference locations cached on the device. With --refresh, re-fetches them from the backend first; without it the command works fully offline.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuildings(cmd, configPath, refresh, unitsFor)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch fresh reference data from the backend")
	cmd.Flags().StringVar(&unitsFor, "units", "", "list units of the given building instead")
	return cmd
}

func runBuildings(cmd *cobra.Command, configPath string, refresh bool, unitsFor string) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if refresh {
		if err := refreshReference(cmd, a, unitsFor); err != nil {
			return err
		}
	}

	if unitsFor != "" {
		units, err := a.store.UnitsForBuilding(unitsFor)
		if err != nil {
			return err
		}
		if len(units) == 0 {
			fmt.Fprintf(out, "No cached units for building %s.\n", unitsFor)
			return nil
		}
		for _, u := range units {
			fmt.Fprintf(out, "%s  %s\n", u.ID, u.Label)
		}
		return nil
	}

	buildings, err := a.store.Buildings()
	if err != nil {
		return err
	}
	if len(buildings) == 0 {
		fmt.Fprintln(out, "No cached buildings. Run with --refresh while online.")
		return nil
	}
	for _, b := range buildings {
		if b.Address != "" {
			fmt.Fprintf(out, "%s  %s (%s)\n", b.ID, b.Name, b.Address)
		} else {
			fmt.Fprintf(out, "%s  %s\n", b.ID, b.Name)
		}
	}
	return nil
}

// refreshReference pulls buildings (and the units of one building, when asked)
// from the backend into the local cache.
func refreshReference(cmd *cobra.Command, a *app, unitsFor string) error {
	backend, err := newBackend(a.cfg)
	if err != nil {
		return err
	}
	src, ok := backend.(remote.ReferenceSource)
	if !ok {
		return fmt.Errorf("remote mode %q cannot serve reference data", a.cfg.Remote.Mode)
	}

	records, err := src.FetchBuildings(cmd.Context())
	if err != nil {
		return fmt.Errorf("refresh buildings: %w", err)
	}
	buildings := make([]models.Building, len(records))
	for i, r := range records {
		buildings[i] = models.Building{ID: r.ID, Name: r.Name, Address: r.Address}
	}
	if err := a.store.UpsertBuildings(buildings); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cached %d buildings.\n", len(buildings))

	if unitsFor == "" {
		return nil
	}
	unitRecords, err := src.FetchUnits(cmd.Context(), unitsFor)
	if err != nil {
		return fmt.Errorf("refresh units for %s: %w", unitsFor, err)
	}
	units := make([]models.Unit, len(unitRecords))
	for i, r := range unitRecords {
		units[i] = models.Unit{ID: r.ID, BuildingID: r.BuildingID, Label: r.Label}
	}
	if err := a.store.UpsertUnits(units); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cached %d units for %s.\n", len(units), unitsFor)
	return nil
}
