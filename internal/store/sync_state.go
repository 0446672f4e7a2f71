package store

import (
	"errors"
	"time"

	"github.com/crewclock/crewclock/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordSweep upserts the per-worker sweep bookkeeping row.
func (s *Store) RecordSweep(workerID string, at time.Time, synced, skipped, errCount int, lastError string) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	state := models.SyncState{
		WorkerID:    workerID,
		LastSweepAt: &at,
		LastSynced:  synced,
		LastSkipped: skipped,
		LastErrors:  errCount,
		LastError:   lastError,
	}
	result := s.gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "worker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_sweep_at", "last_synced", "last_skipped", "last_errors", "last_error", "updated_at"}),
	}).Create(&state)
	return opErr("record sweep", result.Error)
}

// SweepState returns the worker's sweep bookkeeping, or nil if no sweep has
// ever run.
func (s *Store) SweepState(workerID string) (*models.SyncState, error) {
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	var state models.SyncState
	if err := s.gdb.Where("worker_id = ?", workerID).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, opErr("get sweep state", err)
	}
	return &state, nil
}
