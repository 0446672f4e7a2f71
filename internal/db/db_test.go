package db

import (
	"path/filepath"
	"testing"

	"github.com/crewclock/crewclock/internal/models"
)

func TestOpen_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "device.db")
	gdb, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory(): %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate(): %v", err)
	}

	for _, m := range AllModels() {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("table for %T missing after migrate", m)
		}
	}
	if !gdb.Migrator().HasIndex(&models.Session{}, "idx_sessions_worker_status") {
		t.Error("composite (worker_id, status) index missing")
	}
}

func TestAutoMigrate_Idempotent(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory(): %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := AutoMigrate(gdb); err != nil {
			t.Fatalf("AutoMigrate() pass %d: %v", i, err)
		}
	}
}
