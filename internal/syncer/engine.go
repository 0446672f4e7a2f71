// Package syncer reconciles local session records with the remote store. It
// owns every retry: lifecycle operations try a push once inline, and the
// sweep retries everything not yet synced, in creation order, forever.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/crewclock/crewclock/internal/models"
	"github.com/crewclock/crewclock/internal/remote"
	"github.com/crewclock/crewclock/internal/shift"
	"github.com/crewclock/crewclock/internal/store"
)

// DefaultTimeout bounds every remote call; a timed-out call is treated the
// same as any other transport failure.
const DefaultTimeout = 10 * time.Second

// PushStatus classifies the outcome of one push attempt.
type PushStatus int

const (
	// PushAck means the remote store acknowledged; the session is Synced.
	PushAck PushStatus = iota
	// PushRejected means a business rule said no. The local record stays
	// Pending and authoritative; the message is surfaced to the worker.
	PushRejected
	// PushUnavailable means the remote store could not be reached. Silent;
	// the sweep retries later.
	PushUnavailable
	// PushShiftUnresolved means the parent shift has not synced yet. Not an
	// error: skip and try again next sweep.
	PushShiftUnresolved
	// PushFailed means a definitive application failure; the session is
	// marked Error but still retried on later sweeps.
	PushFailed
)

// PushResult is the outcome of one push attempt.
type PushResult struct {
	Status   PushStatus
	RemoteID string
	Message  string
}

// Engine pushes local sessions to the remote store, updating local sync
// status transactionally as it goes.
type Engine struct {
	store   *store.Store
	backend remote.Backend
	shifts  *shift.Resolver
	timeout time.Duration
}

// New creates an Engine. timeout <= 0 falls back to DefaultTimeout.
func New(st *store.Store, backend remote.Backend, shifts *shift.Resolver, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{store: st, backend: backend, shifts: shifts, timeout: timeout}
}

// PushStart registers a newly started session remotely. On acknowledgment the
// session is marked Synced before returning; all other outcomes leave the
// local row Pending. The returned error is reserved for local store failures.
func (e *Engine) PushStart(ctx context.Context, sess *models.Session) (*PushResult, error) {
	remoteShiftID, ok, err := e.shifts.Resolve(sess.ShiftID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &PushResult{Status: PushShiftUnresolved}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	result, err := e.backend.StartSession(callCtx, sess.WorkerID, remoteShiftID, sess.Kind, locationOf(sess))
	if err != nil {
		return e.classifyCallError(sess, err)
	}
	if !result.Accepted {
		return &PushResult{Status: PushRejected, Message: result.Message}, nil
	}

	if err := e.store.MarkSynced(sess.ID, result.RemoteID); err != nil {
		return nil, err
	}
	sess.SyncStatus = models.SyncSynced
	sess.RemoteID = &result.RemoteID
	return &PushResult{Status: PushAck, RemoteID: result.RemoteID}, nil
}

// PushTerminal writes a session that was created and finished entirely
// offline as one whole record. The write is keyed by the local session id so
// a repeat after a lost response lands on the same remote record.
func (e *Engine) PushTerminal(ctx context.Context, sess *models.Session) (*PushResult, error) {
	remoteShiftID, ok, err := e.shifts.Resolve(sess.ShiftID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &PushResult{Status: PushShiftUnresolved}, nil
	}

	snap := remote.Snapshot{
		LocalID:         sess.ID,
		WorkerID:        sess.WorkerID,
		RemoteShiftID:   remoteShiftID,
		Kind:            sess.Kind,
		Location:        locationOf(sess),
		Status:          sess.Status,
		StartedAt:       sess.StartedAt,
		DurationMinutes: sess.DurationMinutes,
		Notes:           sess.Notes,
	}
	if sess.CompletedAt != nil {
		snap.CompletedAt = *sess.CompletedAt
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	remoteID, err := e.backend.DirectInsert(callCtx, snap)
	if err != nil {
		return e.classifyCallError(sess, err)
	}

	if err := e.store.MarkSynced(sess.ID, remoteID); err != nil {
		return nil, err
	}
	sess.SyncStatus = models.SyncSynced
	sess.RemoteID = &remoteID
	return &PushResult{Status: PushAck, RemoteID: remoteID}, nil
}

// PushClose reconciles a session that was registered remotely at start but
// whose completion update is still outstanding. Dispatches on the terminal
// status; every remote operation involved is idempotent.
func (e *Engine) PushClose(ctx context.Context, sess *models.Session) (*PushResult, error) {
	if sess.RemoteID == nil {
		return e.PushTerminal(ctx, sess)
	}

	closedAt := time.Now()
	if sess.CompletedAt != nil {
		closedAt = *sess.CompletedAt
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	switch sess.Status {
	case models.StatusCompleted:
		result, err := e.backend.CompleteSession(callCtx, sess.WorkerID, sess.Kind)
		if err != nil {
			return e.classifyCallError(sess, err)
		}
		if !result.Accepted {
			return &PushResult{Status: PushRejected, Message: result.Message}, nil
		}
	case models.StatusManuallyClosed:
		if err := e.backend.ManualClose(callCtx, sess.WorkerID, sess.ID, closedAt); err != nil {
			return e.classifyCallError(sess, err)
		}
	case models.StatusAutoClosed:
		remoteShiftID, ok, err := e.shifts.Resolve(sess.ShiftID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &PushResult{Status: PushShiftUnresolved}, nil
		}
		if err := e.backend.AutoClose(callCtx, remoteShiftID, sess.WorkerID, closedAt); err != nil {
			return e.classifyCallError(sess, err)
		}
	default:
		return nil, fmt.Errorf("syncer: push close for non-terminal session %s (%s)", sess.ID, sess.Status)
	}

	if err := e.store.MarkSynced(sess.ID, *sess.RemoteID); err != nil {
		return nil, err
	}
	sess.SyncStatus = models.SyncSynced
	return &PushResult{Status: PushAck, RemoteID: *sess.RemoteID}, nil
}

// PushAutoClose performs the single batched remote call after a shift ends,
// then marks the already-registered sessions synced. Sessions that never got
// a remote id are left Pending for the sweep's whole-record insert.
func (e *Engine) PushAutoClose(ctx context.Context, shiftID, workerID string, closedAt time.Time, sessions []models.Session) (*PushResult, error) {
	remoteShiftID, ok, err := e.shifts.Resolve(shiftID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &PushResult{Status: PushShiftUnresolved}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.backend.AutoClose(callCtx, remoteShiftID, workerID, closedAt); err != nil {
		if remote.Unavailable(err) {
			return &PushResult{Status: PushUnavailable, Message: err.Error()}, nil
		}
		return &PushResult{Status: PushFailed, Message: err.Error()}, nil
	}

	for i := range sessions {
		if sessions[i].RemoteID == nil {
			continue
		}
		if err := e.store.MarkSynced(sessions[i].ID, *sessions[i].RemoteID); err != nil {
			return nil, err
		}
	}
	return &PushResult{Status: PushAck}, nil
}

// classifyCallError translates a backend error into a push outcome. Transport
// failures stay Pending; definitive failures are marked Error locally (and
// still retried by later sweeps).
func (e *Engine) classifyCallError(sess *models.Session, err error) (*PushResult, error) {
	if remote.Unavailable(err) {
		return &PushResult{Status: PushUnavailable, Message: err.Error()}, nil
	}
	if markErr := e.store.MarkSyncError(sess.ID); markErr != nil {
		return nil, markErr
	}
	sess.SyncStatus = models.SyncError
	return &PushResult{Status: PushFailed, Message: err.Error()}, nil
}

func locationOf(sess *models.Session) remote.LocationRef {
	return remote.LocationRef{BuildingID: sess.BuildingID, UnitID: sess.UnitID}
}
