package syncer

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/crewclock/crewclock/internal/notify"
	"github.com/crewclock/crewclock/internal/store"
)

// DefaultInterval is the default gap between periodic sweeps.
const DefaultInterval = 2 * time.Minute

// RunnerOpts holds configuration for the background sync runner.
type RunnerOpts struct {
	Store    *store.Store
	Engine   *Engine
	WorkerID string
	Interval time.Duration
	Schedule string // optional 5-field cron for an extra full-sweep window
	Notifier notify.Notifier
	Out      io.Writer
}

// Runner drives sweeps in the background: on a fixed interval, on a
// connectivity-regained signal, and optionally on a cron schedule. Per-sweep
// failures are logged and swallowed; the loop only exits with the context.
type Runner struct {
	opts      RunnerOpts
	reconnect chan struct{}
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOpts) (*Runner, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("syncer: store is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("syncer: engine is required")
	}
	if opts.WorkerID == "" {
		return nil, fmt.Errorf("syncer: worker id is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Schedule != "" && !ValidSchedule(opts.Schedule) {
		return nil, fmt.Errorf("syncer: invalid cron schedule %q", opts.Schedule)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Runner{opts: opts, reconnect: make(chan struct{}, 1)}, nil
}

// NotifyReconnected signals that connectivity came back; the runner sweeps
// immediately instead of waiting out the interval. Never blocks.
func (r *Runner) NotifyReconnected() {
	select {
	case r.reconnect <- struct{}{}:
	default:
	}
}

// Run loops until ctx is cancelled. A sweep interrupted mid-list simply
// resumes on the next trigger; every per-session update is independently
// transactional and idempotent.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	var cronCh <-chan time.Time
	var cronTimer *time.Timer
	if r.opts.Schedule != "" {
		cronTimer = time.NewTimer(nextCronDuration(r.opts.Schedule))
		defer cronTimer.Stop()
		cronCh = cronTimer.C
	}

	fmt.Fprintf(r.opts.Out, "Sync runner starting (every %s)...\n", r.opts.Interval)
	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(r.opts.Out, "Sync runner stopped.\n")
			return nil
		case <-ticker.C:
			r.sweep(ctx)
		case <-r.reconnect:
			fmt.Fprintf(r.opts.Out, "Connectivity regained, sweeping now\n")
			r.sweep(ctx)
		case <-cronCh:
			fmt.Fprintf(r.opts.Out, "Scheduled full sweep\n")
			r.sweep(ctx)
			cronTimer.Reset(nextCronDuration(r.opts.Schedule))
		}
	}
}

// sweep runs one pass and records its outcome. Errors never stop the runner.
func (r *Runner) sweep(ctx context.Context) {
	report, err := r.opts.Engine.SyncPending(ctx, r.opts.WorkerID)
	if err != nil {
		log.Printf("syncer: sweep for %s: %v", r.opts.WorkerID, err)
		return
	}

	lastError := strings.Join(report.Messages, "; ")
	if err := r.opts.Store.RecordSweep(r.opts.WorkerID, time.Now(), report.Synced, report.Skipped, report.Errors, lastError); err != nil {
		log.Printf("syncer: record sweep: %v", err)
	}

	if report.Total > 0 {
		fmt.Fprintf(r.opts.Out, "Sweep: %s\n", report)
	}

	if report.Errors > 0 && r.opts.Notifier != nil {
		ev := notify.Event{
			Kind:     notify.KindSyncErrors,
			WorkerID: r.opts.WorkerID,
			Summary:  fmt.Sprintf("%d sessions failed to sync", report.Errors),
			Detail:   lastError,
			At:       time.Now(),
		}
		if err := r.opts.Notifier.Send(ctx, ev); err != nil {
			log.Printf("syncer: notify: %v", err)
		}
	}
}
