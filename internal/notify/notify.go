// Package notify delivers best-effort supervisor notifications: auto-close
// reports and sync trouble. Delivery never blocks or fails a lifecycle
// operation; adapter errors are logged and dropped.
package notify

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/crewclock/crewclock/internal/config"
)

// Event kinds.
const (
	KindAutoClose  = "auto-close"
	KindSyncErrors = "sync-errors"
)

// Event is a single notification.
type Event struct {
	Kind     string
	WorkerID string
	Summary  string
	Detail   string
	At       time.Time
}

// Text renders the event as a plain one-or-two-line message.
func (e Event) Text() string {
	msg := fmt.Sprintf("[crewclock] %s: worker %s: %s", e.Kind, e.WorkerID, e.Summary)
	if e.Detail != "" {
		msg += "\n" + e.Detail
	}
	return msg
}

// Notifier delivers events to one channel.
type Notifier interface {
	Send(ctx context.Context, ev Event) error
}

// Multi fans an event out to several notifiers. Failures are logged, not
// returned: one broken channel must not silence the others.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, ev Event) error {
	for _, n := range m {
		if err := n.Send(ctx, ev); err != nil {
			log.Printf("notify: %v", err)
		}
	}
	return nil
}

// CommandNotifier runs a shell command template, e.g.
// "notify-send 'crewclock' '{{.Summary}}'".
type CommandNotifier struct {
	Command string
}

// Send implements Notifier.
func (c CommandNotifier) Send(ctx context.Context, ev Event) error {
	cmdStr := templateEvent(c.Command, ev)
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify: command failed: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// templateEvent replaces placeholders in the command template with event values.
func templateEvent(command string, ev Event) string {
	r := strings.NewReplacer(
		"{{.Kind}}", ev.Kind,
		"{{.Worker}}", ev.WorkerID,
		"{{.Summary}}", ev.Summary,
		"{{.Detail}}", ev.Detail,
	)
	return r.Replace(command)
}

// FromConfig builds the configured notifier stack. With nothing configured it
// returns an empty Multi, which swallows every event.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var stack Multi
	if cfg.Command != "" {
		stack = append(stack, CommandNotifier{Command: cfg.Command})
	}
	if cfg.Slack.Token != "" {
		if cfg.Slack.Channel == "" {
			return nil, fmt.Errorf("notify: slack channel is required when a slack token is set")
		}
		stack = append(stack, NewSlack(cfg.Slack.Token, cfg.Slack.Channel))
	}
	if cfg.Discord.Token != "" {
		if cfg.Discord.Channel == "" {
			return nil, fmt.Errorf("notify: discord channel is required when a discord token is set")
		}
		d, err := NewDiscord(cfg.Discord.Token, cfg.Discord.Channel)
		if err != nil {
			return nil, err
		}
		stack = append(stack, d)
	}
	return stack, nil
}
