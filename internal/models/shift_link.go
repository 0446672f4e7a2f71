package models

import "time"

// ShiftLink maps a locally-generated shift id to the identifier the remote
// store assigned once the shift's own sync completed. Rows are written by the
// shift-sync subsystem; this core only reads them. A session cannot be
// submitted remotely until a link exists for its shift.
type ShiftLink struct {
	LocalID  string `gorm:"primaryKey;size:64"`
	RemoteID string `gorm:"size:64;not null"`
	SyncedAt time.Time
}
