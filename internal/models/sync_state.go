package models

import "time"

// SyncState is per-worker sweep bookkeeping: when the last sweep ran and what
// it did. Written by the sync runner, read by the dashboard.
type SyncState struct {
	WorkerID    string `gorm:"primaryKey;size:64"`
	LastSweepAt *time.Time
	LastSynced  int
	LastSkipped int
	LastErrors  int
	LastError   string `gorm:"type:text"`
	UpdatedAt   time.Time
}
