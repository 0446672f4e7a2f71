package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/crewclock/crewclock/internal/config"
	"github.com/crewclock/crewclock/internal/db"
	"github.com/crewclock/crewclock/internal/models"
	"github.com/crewclock/crewclock/internal/remote"
	"github.com/crewclock/crewclock/internal/remote/api"
	"github.com/crewclock/crewclock/internal/remote/central"
	"github.com/crewclock/crewclock/internal/session"
	"github.com/crewclock/crewclock/internal/shift"
	"github.com/crewclock/crewclock/internal/store"
	"github.com/crewclock/crewclock/internal/syncer"
)

// defaultConfigPath is where cwc looks for its config unless -c overrides it.
func defaultConfigPath() string {
	return filepath.Join(config.DefaultDir(), "config.yaml")
}

// app bundles everything a command needs once the config is loaded.
type app struct {
	cfg       *config.Config
	gdb       *gorm.DB
	store     *store.Store
	engine    *syncer.Engine
	lifecycle *session.Lifecycle
}

// openApp loads config, opens the local database, and wires the sync engine.
// The remote backend is constructed eagerly in central mode only when the
// server is reachable; in api mode construction never touches the network.
func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	gdb, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	st := store.New(gdb)
	if err := st.EnsureSchema(); err != nil {
		return nil, err
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	engine := syncer.New(st, backend, shift.NewResolver(st), cfg.Sync.Timeout.Std())
	return &app{
		cfg:       cfg,
		gdb:       gdb,
		store:     st,
		engine:    engine,
		lifecycle: session.New(st, engine),
	}, nil
}

// newBackend builds the remote adapter selected by remote.mode.
func newBackend(cfg *config.Config) (remote.Backend, error) {
	switch cfg.Remote.Mode {
	case "api":
		token, err := cfg.APIToken()
		if err != nil {
			// Unauthenticated calls get a definitive rejection from the
			// server; failing here with a pointer to login is kinder.
			return nil, fmt.Errorf("no API token configured (run \"cwc login\"): %w", err)
		}
		return api.New(cfg.Remote.Endpoint, token), nil
	case "central":
		return central.Connect(cfg.Remote.Central)
	default:
		return nil, fmt.Errorf("unknown remote mode %q", cfg.Remote.Mode)
	}
}

// positionFlags registers the optional GPS flags shared by start, complete
// and close.
type positionFlags struct {
	lat      float64
	lng      float64
	accuracy float64
}

func (p *positionFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&p.lat, "lat", 0, "GPS latitude")
	cmd.Flags().Float64Var(&p.lng, "lng", 0, "GPS longitude")
	cmd.Flags().Float64Var(&p.accuracy, "accuracy", 0, "GPS accuracy in meters")
}

// position returns the fix, or nil when no GPS flags were given.
func (p *positionFlags) position(cmd *cobra.Command) *models.Position {
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
		return nil
	}
	return &models.Position{Lat: p.lat, Lng: p.lng, Accuracy: p.accuracy}
}
