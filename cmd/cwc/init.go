package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crewclock/crewclock/internal/config"
	"github.com/crewclock/crewclock/internal/db"
)

func newInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the local CrewClock database",
		Long:  "Creates the device database file and migrates all tables. Safe to re-run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	return cmd
}

func runInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config for worker %q from %s\n", cfg.Worker, configPath)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	gdb, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables in %s\n", len(db.AllModels()), cfg.DBPath)

	fmt.Fprintln(out, "\nCrewClock database initialized successfully.")
	return nil
}
