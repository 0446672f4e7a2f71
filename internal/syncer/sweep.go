package syncer

import (
	"context"
	"fmt"

	"github.com/crewclock/crewclock/internal/models"
)

// Report summarizes one sweep.
type Report struct {
	Total    int
	Synced   int
	Skipped  int // parent shift not yet resolved
	Rejected int
	Errors   int
	Offline  bool // at least one attempt hit an unreachable remote
	Messages []string
}

// String renders the report for operator output.
func (r *Report) String() string {
	return fmt.Sprintf("%d pending: %d synced, %d skipped, %d rejected, %d errors",
		r.Total, r.Synced, r.Skipped, r.Rejected, r.Errors)
}

// SyncPending drains the worker's unsynced sessions, oldest first. Per-item
// failures are recorded and the batch continues; the sweep itself only fails
// on local store errors. Because a session's shift must resolve before the
// session can sync, processing in creation order makes ordering self-healing
// across sweeps with no explicit dependency graph.
func (e *Engine) SyncPending(ctx context.Context, workerID string) (*Report, error) {
	pending, err := e.store.ListPendingSync(workerID)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(pending)}
	for i := range pending {
		if ctx.Err() != nil {
			// Interrupted mid-list (app suspended): partial progress is safe,
			// the next trigger resumes where this one left off.
			return report, nil
		}

		sess := &pending[i]
		result, err := e.dispatch(ctx, sess)
		if err != nil {
			return report, err
		}

		switch result.Status {
		case PushAck:
			report.Synced++
		case PushShiftUnresolved:
			report.Skipped++
		case PushRejected:
			report.Rejected++
			report.Messages = append(report.Messages, fmt.Sprintf("%s: %s", sess.ID, result.Message))
		case PushUnavailable:
			report.Offline = true
		case PushFailed:
			report.Errors++
			report.Messages = append(report.Messages, fmt.Sprintf("%s: %s", sess.ID, result.Message))
		}
	}
	return report, nil
}

// dispatch picks the right push for a session's state.
func (e *Engine) dispatch(ctx context.Context, sess *models.Session) (*PushResult, error) {
	switch {
	case !sess.Terminal() && sess.RemoteID == nil:
		return e.PushStart(ctx, sess)
	case sess.Terminal() && sess.RemoteID == nil:
		return e.PushTerminal(ctx, sess)
	case sess.Terminal():
		return e.PushClose(ctx, sess)
	default:
		// InProgress with a remote id but not Synced: MarkSynced sets both
		// fields in one write, so this state is unreachable; repair it.
		if err := e.store.MarkSynced(sess.ID, *sess.RemoteID); err != nil {
			return nil, err
		}
		return &PushResult{Status: PushAck, RemoteID: *sess.RemoteID}, nil
	}
}
