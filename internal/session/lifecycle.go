// Package session enforces the session state machine: one InProgress session
// per worker across all kinds, terminal statuses that are never left, and
// lifecycle operations that succeed offline. Network outcomes never fail a
// lifecycle call; the syncer owns all retries.
package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/crewclock/crewclock/internal/models"
	"github.com/crewclock/crewclock/internal/store"
	"github.com/crewclock/crewclock/internal/syncer"
)

// Lifecycle drives session start/complete/close for any session kind. The
// "current active session" view is always re-derived from the store, never
// cached across restarts.
type Lifecycle struct {
	store  *store.Store
	engine *syncer.Engine
	now    func() time.Time
}

// New creates a Lifecycle. engine may be nil for an offline-only setup; then
// no inline push is attempted and the sweep handles everything.
func New(st *store.Store, engine *syncer.Engine) *Lifecycle {
	return &Lifecycle{store: st, engine: engine, now: time.Now}
}

// StartOpts holds parameters for starting a session.
type StartOpts struct {
	WorkerID   string
	ShiftID    string
	Kind       string
	BuildingID string
	UnitID     string
	Start      *models.Position
	Notes      string
}

// StartResult is a successful start. Warning carries a remote business-rule
// message when the far side rejected the inline registration; the local
// session still exists and is usable offline.
type StartResult struct {
	Session *models.Session
	Warning string
}

// Start creates a new InProgress session. It fails with *ActiveSessionError
// if the worker already has an active session of any kind; the check and the
// insert run in one local transaction so a double-tap cannot race past it.
// Remote registration is attempted once, best-effort.
func (l *Lifecycle) Start(ctx context.Context, opts StartOpts) (*StartResult, error) {
	if opts.WorkerID == "" {
		return nil, fmt.Errorf("session: worker id is required")
	}
	if opts.ShiftID == "" {
		return nil, fmt.Errorf("session: shift id is required")
	}
	if opts.Kind == "" {
		return nil, fmt.Errorf("session: kind is required")
	}
	if opts.BuildingID == "" {
		return nil, fmt.Errorf("session: building is required")
	}

	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		ID:         id,
		WorkerID:   opts.WorkerID,
		ShiftID:    opts.ShiftID,
		Kind:       opts.Kind,
		BuildingID: opts.BuildingID,
		UnitID:     opts.UnitID,
		Status:     models.StatusInProgress,
		StartedAt:  l.now(),
		SyncStatus: models.SyncPending,
		Notes:      opts.Notes,
	}
	sess.SetStartPosition(opts.Start)

	err = l.store.Transaction(func(tx *store.Store) error {
		active, err := tx.ActiveSession(opts.WorkerID)
		if err != nil {
			return err
		}
		if active != nil {
			return &ActiveSessionError{
				Kind:       active.Kind,
				BuildingID: active.BuildingID,
				UnitID:     active.UnitID,
			}
		}
		return tx.InsertSession(sess)
	})
	if err != nil {
		return nil, err
	}

	result := &StartResult{Session: sess}
	if push := l.tryPush(ctx, sess, l.pushStart); push != nil && push.Status == syncer.PushRejected {
		result.Warning = push.Message
	}
	return result, nil
}

// Complete finishes the worker's active session: completedAt and the frozen
// duration are set together and never revised. Fails with ErrNoActiveSession
// if nothing is active.
func (l *Lifecycle) Complete(ctx context.Context, workerID string, end *models.Position) (*models.Session, error) {
	active, err := l.store.ActiveSession(workerID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveSession
	}

	l.closeSession(active, models.StatusCompleted, l.now())
	active.SetEndPosition(end)
	if err := l.store.UpdateSession(active); err != nil {
		return nil, err
	}

	l.tryPush(ctx, active, l.engineClose)
	return active, nil
}

// ManualClose closes the worker's active session without completing it.
// Always allowed, even with degraded or absent location. Returns nil with no
// error when nothing is active: closing nothing is an idempotent no-op.
func (l *Lifecycle) ManualClose(ctx context.Context, workerID string, end *models.Position) (*models.Session, error) {
	active, err := l.store.ActiveSession(workerID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, nil
	}

	l.closeSession(active, models.StatusManuallyClosed, l.now())
	active.SetEndPosition(end)
	if err := l.store.UpdateSession(active); err != nil {
		return nil, err
	}

	l.tryPush(ctx, active, l.engineClose)
	return active, nil
}

// AutoClose closes every InProgress session for a shift when the shift ends.
// Deliberately plural: a crash can leave stray InProgress rows, and all of
// them must be drained. Each session's duration is computed from its own
// start. Returns the number of sessions closed so the caller can report
// "N sessions were closed automatically".
func (l *Lifecycle) AutoClose(ctx context.Context, shiftID, workerID string, closedAt time.Time) (int, error) {
	sessions, err := l.store.ActiveSessionsForShift(shiftID, workerID)
	if err != nil {
		return 0, err
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	for i := range sessions {
		l.closeSession(&sessions[i], models.StatusAutoClosed, closedAt)
		if err := l.store.UpdateSession(&sessions[i]); err != nil {
			return 0, err
		}
	}

	// One batched remote call. If the shift has not resolved or the network
	// is down, the sessions stay Pending and the sweep picks them up once
	// the shift itself has synced.
	if l.engine != nil {
		if _, err := l.engine.PushAutoClose(ctx, shiftID, workerID, closedAt, sessions); err != nil {
			log.Printf("session: auto-close push: %v", err)
		}
	}
	return len(sessions), nil
}

// Active returns the worker's InProgress session across all kinds, or nil.
func (l *Lifecycle) Active(workerID string) (*models.Session, error) {
	return l.store.ActiveSession(workerID)
}

// ActiveForKind returns the worker's InProgress session of one kind, or nil.
func (l *Lifecycle) ActiveForKind(workerID, kind string) (*models.Session, error) {
	return l.store.ActiveSessionForKind(workerID, kind)
}

// closeSession applies a terminal status. completedAt and durationMinutes are
// set atomically with the status and the row goes back to Pending so the
// completion reaches the remote store.
func (l *Lifecycle) closeSession(sess *models.Session, status string, closedAt time.Time) {
	sess.Status = status
	sess.CompletedAt = &closedAt
	sess.DurationMinutes = closedAt.Sub(sess.StartedAt).Minutes()
	sess.SyncStatus = models.SyncPending
}

// tryPush runs one inline push attempt. Push outcomes never fail the
// lifecycle operation; local store failures during the push are logged and
// swallowed because the session row itself is already safely written.
func (l *Lifecycle) tryPush(ctx context.Context, sess *models.Session, push func(context.Context, *models.Session) (*syncer.PushResult, error)) *syncer.PushResult {
	if l.engine == nil || push == nil {
		return nil
	}
	result, err := push(ctx, sess)
	if err != nil {
		log.Printf("session: inline push for %s: %v", sess.ID, err)
		return nil
	}
	return result
}

func (l *Lifecycle) pushStart(ctx context.Context, sess *models.Session) (*syncer.PushResult, error) {
	return l.engine.PushStart(ctx, sess)
}

func (l *Lifecycle) engineClose(ctx context.Context, sess *models.Session) (*syncer.PushResult, error) {
	return l.engine.PushClose(ctx, sess)
}
