package dashboard

import (
	"errors"
	"time"

	"github.com/crewclock/crewclock/internal/models"
	"gorm.io/gorm"
)

// ActiveRow holds an in-progress session for display.
type ActiveRow struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	ShiftID    string    `json:"shiftId"`
	BuildingID string    `json:"buildingId"`
	UnitID     string    `json:"unitId,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	Minutes    float64   `json:"minutes"`
	SyncStatus string    `json:"syncStatus"`
}

// ActiveSessions returns the worker's in-progress sessions with elapsed time.
func ActiveSessions(db *gorm.DB, workerID string) ([]ActiveRow, error) {
	var sessions []models.Session
	if err := db.Where("worker_id = ? AND status = ?", workerID, models.StatusInProgress).
		Order("started_at ASC").Find(&sessions).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	rows := make([]ActiveRow, len(sessions))
	for i, s := range sessions {
		rows[i] = ActiveRow{
			ID:         s.ID,
			Kind:       s.Kind,
			ShiftID:    s.ShiftID,
			BuildingID: s.BuildingID,
			UnitID:     s.UnitID,
			StartedAt:  s.StartedAt,
			Minutes:    now.Sub(s.StartedAt).Minutes(),
			SyncStatus: s.SyncStatus,
		}
	}
	return rows, nil
}

// PendingRow holds an unsynced session for display.
type PendingRow struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	ShiftID    string     `json:"shiftId"`
	Status     string     `json:"status"`
	SyncStatus string     `json:"syncStatus"`
	StartedAt  time.Time  `json:"startedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	RemoteID   *string    `json:"remoteId,omitempty"`
	Completed  *time.Time `json:"completedAt,omitempty"`
}

// PendingSessions returns everything waiting for the sync engine, oldest first.
func PendingSessions(db *gorm.DB, workerID string) ([]PendingRow, error) {
	var sessions []models.Session
	if err := db.Where("worker_id = ? AND sync_status <> ?", workerID, models.SyncSynced).
		Order("created_at ASC").Find(&sessions).Error; err != nil {
		return nil, err
	}

	rows := make([]PendingRow, len(sessions))
	for i, s := range sessions {
		rows[i] = PendingRow{
			ID:         s.ID,
			Kind:       s.Kind,
			ShiftID:    s.ShiftID,
			Status:     s.Status,
			SyncStatus: s.SyncStatus,
			StartedAt:  s.StartedAt,
			CreatedAt:  s.CreatedAt,
			RemoteID:   s.RemoteID,
			Completed:  s.CompletedAt,
		}
	}
	return rows, nil
}

// RecentRow holds a recently finished session for display.
type RecentRow struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	BuildingID string     `json:"buildingId"`
	Minutes    float64    `json:"minutes"`
	Completed  *time.Time `json:"completedAt,omitempty"`
	SyncStatus string     `json:"syncStatus"`
}

// RecentSessions returns the worker's last limit terminal sessions.
func RecentSessions(db *gorm.DB, workerID string, limit int) ([]RecentRow, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []models.Session
	if err := db.Where("worker_id = ? AND status <> ?", workerID, models.StatusInProgress).
		Order("completed_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, err
	}

	rows := make([]RecentRow, len(sessions))
	for i, s := range sessions {
		rows[i] = RecentRow{
			ID:         s.ID,
			Kind:       s.Kind,
			Status:     s.Status,
			BuildingID: s.BuildingID,
			Minutes:    s.DurationMinutes,
			Completed:  s.CompletedAt,
			SyncStatus: s.SyncStatus,
		}
	}
	return rows, nil
}

// SyncOverview summarizes sync health for a worker.
type SyncOverview struct {
	Pending     int64      `json:"pending"`
	Errors      int64      `json:"errors"`
	Synced      int64      `json:"synced"`
	LastSweepAt *time.Time `json:"lastSweepAt,omitempty"`
	LastSynced  int        `json:"lastSynced"`
	LastSkipped int        `json:"lastSkipped"`
	LastErrors  int        `json:"lastErrors"`
	LastError   string     `json:"lastError,omitempty"`
}

// SyncSummary returns counts by sync status plus the last sweep's outcome.
func SyncSummary(db *gorm.DB, workerID string) (*SyncOverview, error) {
	out := &SyncOverview{}

	type row struct {
		SyncStatus string
		Count      int64
	}
	var rows []row
	if err := db.Model(&models.Session{}).
		Select("sync_status, count(*) as count").
		Where("worker_id = ?", workerID).
		Group("sync_status").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		switch r.SyncStatus {
		case models.SyncPending:
			out.Pending = r.Count
		case models.SyncError:
			out.Errors = r.Count
		case models.SyncSynced:
			out.Synced = r.Count
		}
	}

	var state models.SyncState
	err := db.Where("worker_id = ?", workerID).First(&state).Error
	if err == nil {
		out.LastSweepAt = state.LastSweepAt
		out.LastSynced = state.LastSynced
		out.LastSkipped = state.LastSkipped
		out.LastErrors = state.LastErrors
		out.LastError = state.LastError
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return out, nil
}

// BuildingRow holds a cached building with its unit count.
type BuildingRow struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Units int64  `json:"units"`
}

// BuildingList returns the cached reference buildings.
func BuildingList(db *gorm.DB) ([]BuildingRow, error) {
	var buildings []models.Building
	if err := db.Order("name ASC").Find(&buildings).Error; err != nil {
		return nil, err
	}

	rows := make([]BuildingRow, len(buildings))
	for i, b := range buildings {
		var count int64
		if err := db.Model(&models.Unit{}).Where("building_id = ?", b.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		rows[i] = BuildingRow{ID: b.ID, Name: b.Name, Units: count}
	}
	return rows, nil
}
