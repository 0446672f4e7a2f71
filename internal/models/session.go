package models

import "time"

// Session kinds. Sessions of different kinds share the single-active-session
// rule: a worker has at most one InProgress session across all kinds.
const (
	KindCleaning    = "cleaning"
	KindMaintenance = "maintenance"
)

// Session statuses. InProgress is the only non-terminal status; there are no
// transitions out of a terminal status.
const (
	StatusInProgress     = "in_progress"
	StatusCompleted      = "completed"
	StatusAutoClosed     = "auto_closed"
	StatusManuallyClosed = "manually_closed"
)

// Sync statuses relative to the remote store.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// Session is a timed, location-scoped unit of worker activity. The row is
// created on-device and reconciled with the remote store by the syncer;
// RemoteID is set once the remote store acknowledges creation.
type Session struct {
	ID         string `gorm:"primaryKey;size:32"`
	WorkerID   string `gorm:"size:64;not null;index:idx_sessions_worker_status"`
	ShiftID    string `gorm:"size:64;not null;index"`
	Kind       string `gorm:"size:16;not null"`
	BuildingID string `gorm:"size:64;not null"`
	UnitID     string `gorm:"size:64"`

	Status          string `gorm:"size:16;default:in_progress;index:idx_sessions_worker_status"`
	StartedAt       time.Time `gorm:"not null"`
	CompletedAt     *time.Time
	DurationMinutes float64

	StartLat      *float64
	StartLng      *float64
	StartAccuracy *float64
	EndLat        *float64
	EndLng        *float64
	EndAccuracy   *float64

	SyncStatus string  `gorm:"size:16;default:pending;index"`
	RemoteID   *string `gorm:"size:64"`

	Notes     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Position is a GPS fix captured best-effort at session start or end.
type Position struct {
	Lat      float64
	Lng      float64
	Accuracy float64
}

// Terminal reports whether the session is in a terminal status.
func (s *Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusAutoClosed || s.Status == StatusManuallyClosed
}

// SetStartPosition records the start GPS fix. A nil position is a no-op.
func (s *Session) SetStartPosition(p *Position) {
	if p == nil {
		return
	}
	s.StartLat, s.StartLng, s.StartAccuracy = &p.Lat, &p.Lng, &p.Accuracy
}

// SetEndPosition records the end GPS fix. A nil position is a no-op.
func (s *Session) SetEndPosition(p *Position) {
	if p == nil {
		return
	}
	s.EndLat, s.EndLng, s.EndAccuracy = &p.Lat, &p.Lng, &p.Accuracy
}

// StartPosition returns the recorded start fix, or nil if none was captured.
func (s *Session) StartPosition() *Position {
	if s.StartLat == nil || s.StartLng == nil {
		return nil
	}
	p := Position{Lat: *s.StartLat, Lng: *s.StartLng}
	if s.StartAccuracy != nil {
		p.Accuracy = *s.StartAccuracy
	}
	return &p
}

// EndPosition returns the recorded end fix, or nil if none was captured.
func (s *Session) EndPosition() *Position {
	if s.EndLat == nil || s.EndLng == nil {
		return nil
	}
	p := Position{Lat: *s.EndLat, Lng: *s.EndLng}
	if s.EndAccuracy != nil {
		p.Accuracy = *s.EndAccuracy
	}
	return &p
}
