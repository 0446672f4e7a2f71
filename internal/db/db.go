// Package db owns the on-device sqlite database: opening, schema migration.
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crewclock/crewclock/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (and creates if needed) the device database at path.
// Parent directories are created as required.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: create dir %s: %w", dir, err)
		}
	}
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	// Lifecycle operations and the background sweep share this database.
	if err := gdb.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("db: enable WAL on %s: %w", path, err)
	}
	if err := gdb.Exec("PRAGMA busy_timeout=5000").Error; err != nil {
		return nil, fmt.Errorf("db: set busy timeout on %s: %w", path, err)
	}
	return gdb, nil
}

// OpenMemory opens an in-memory database, used by tests and dry runs.
func OpenMemory() (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open in-memory: %w", err)
	}
	return gdb, nil
}

// AllModels returns the list of all device-side GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Session{},
		&models.ShiftLink{},
		&models.Building{},
		&models.Unit{},
		&models.SyncState{},
	}
}

// AutoMigrate creates or additively updates all device tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
