// Package remote defines the interface the sync core uses to talk to the
// authoritative store, plus the result taxonomy: acknowledged, rejected by a
// business rule, or unreachable.
package remote

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks transport-level failures: no network, timeout, server
// down. Adapters wrap it so the syncer can distinguish "try again later" from
// a definitive application failure. Callers test with errors.Is.
var ErrUnavailable = errors.New("remote unavailable")

// Unavailable reports whether err is a transport-level failure.
func Unavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// LocationRef identifies where a session takes place.
type LocationRef struct {
	BuildingID string `json:"buildingId"`
	UnitID     string `json:"unitId,omitempty"`
}

// StartResult is the remote answer to a session start. Accepted=false is a
// business-rule rejection: the local session stands, the message is surfaced
// to the worker as a warning.
type StartResult struct {
	Accepted bool   `json:"accepted"`
	RemoteID string `json:"remoteId,omitempty"`
	Message  string `json:"message,omitempty"`
}

// CompleteResult is the remote answer to completing the active session.
type CompleteResult struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

// Snapshot is a full session record for direct insertion, used for sessions
// created and finished entirely offline. LocalID keys the write so repeating
// it cannot create a second remote record.
type Snapshot struct {
	LocalID         string       `json:"localId"`
	WorkerID        string       `json:"workerId"`
	RemoteShiftID   string       `json:"shiftId"`
	Kind            string       `json:"kind"`
	Location        LocationRef  `json:"location"`
	Status          string       `json:"status"`
	StartedAt       time.Time    `json:"startedAt"`
	CompletedAt     time.Time    `json:"completedAt"`
	DurationMinutes float64      `json:"durationMinutes"`
	Notes           string       `json:"notes,omitempty"`
}

// BuildingRecord is a building as the remote store describes it.
type BuildingRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// UnitRecord is a sub-location as the remote store describes it.
type UnitRecord struct {
	ID         string `json:"id"`
	BuildingID string `json:"buildingId"`
	Label      string `json:"label"`
}

// ReferenceSource is implemented by backends that can serve the building and
// unit reference data the device caches for offline use.
type ReferenceSource interface {
	FetchBuildings(ctx context.Context) ([]BuildingRecord, error)
	FetchUnits(ctx context.Context, buildingID string) ([]UnitRecord, error)
}

// Backend is the remote store surface the core calls through. Every method
// must honor ctx cancellation and deadline; transport failures wrap
// ErrUnavailable, anything else non-nil is a definitive failure.
type Backend interface {
	// StartSession registers a new session for the worker.
	StartSession(ctx context.Context, workerID, remoteShiftID, kind string, loc LocationRef) (*StartResult, error)

	// CompleteSession completes the worker's active remote session of a kind.
	// Idempotent: completing an already-completed session is an accepted no-op.
	CompleteSession(ctx context.Context, workerID, kind string) (*CompleteResult, error)

	// ManualClose closes the remote counterpart of a locally closed session.
	// Idempotent by local session id.
	ManualClose(ctx context.Context, workerID, localSessionID string, closedAt time.Time) error

	// AutoClose closes all open remote sessions for a shift and worker.
	AutoClose(ctx context.Context, remoteShiftID, workerID string, closedAt time.Time) error

	// DirectInsert writes a complete session record keyed by its local id and
	// returns the assigned remote id. Safe to repeat.
	DirectInsert(ctx context.Context, snap Snapshot) (string, error)
}
