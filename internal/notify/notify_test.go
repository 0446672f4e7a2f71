package notify

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
	"github.com/crewclock/crewclock/internal/config"
)

func testEvent() Event {
	return Event{
		Kind:     KindAutoClose,
		WorkerID: "w-1",
		Summary:  "2 sessions closed automatically",
		At:       time.Now(),
	}
}

func TestEvent_Text(t *testing.T) {
	ev := testEvent()
	text := ev.Text()
	for _, want := range []string{"auto-close", "w-1", "2 sessions closed automatically"} {
		if !strings.Contains(text, want) {
			t.Errorf("Text() = %q, missing %q", text, want)
		}
	}

	ev.Detail = "shift-1 ended"
	if !strings.Contains(ev.Text(), "shift-1 ended") {
		t.Error("Text() drops Detail")
	}
}

func TestTemplateEvent(t *testing.T) {
	got := templateEvent("notify-send '{{.Kind}}' '{{.Summary}}' # {{.Worker}}", testEvent())
	want := "notify-send 'auto-close' '2 sessions closed automatically' # w-1"
	if got != want {
		t.Errorf("templateEvent() = %q, want %q", got, want)
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Send(ctx context.Context, ev Event) error {
	f.calls++
	return fmt.Errorf("boom")
}

type recordingNotifier struct{ got []Event }

func (r *recordingNotifier) Send(ctx context.Context, ev Event) error {
	r.got = append(r.got, ev)
	return nil
}

func TestMulti_ContinuesPastFailures(t *testing.T) {
	failing := &failingNotifier{}
	recording := &recordingNotifier{}
	m := Multi{failing, recording}

	if err := m.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Multi.Send() = %v, want nil", err)
	}
	if failing.calls != 1 {
		t.Errorf("failing notifier calls = %d, want 1", failing.calls)
	}
	if len(recording.got) != 1 {
		t.Errorf("recording notifier received %d events, want 1", len(recording.got))
	}
}

type mockSlack struct {
	channel string
	texts   []string
	err     error
}

func (m *mockSlack) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.channel = channelID
	return "", "", m.err
}

func TestSlack_Send(t *testing.T) {
	mock := &mockSlack{}
	s := &Slack{client: mock, channel: "C123"}

	if err := s.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send(): %v", err)
	}
	if mock.channel != "C123" {
		t.Errorf("posted to %q, want C123", mock.channel)
	}

	mock.err = fmt.Errorf("rate limited")
	if err := s.Send(context.Background(), testEvent()); err == nil {
		t.Error("Send() swallowed the API error")
	}
}

type mockDiscord struct {
	channel string
	content string
	err     error
}

func (m *mockDiscord) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.channel = channelID
	m.content = content
	return nil, m.err
}

func TestDiscord_Send(t *testing.T) {
	mock := &mockDiscord{}
	d := &Discord{session: mock, channel: "987"}

	if err := d.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send(): %v", err)
	}
	if mock.channel != "987" {
		t.Errorf("posted to %q, want 987", mock.channel)
	}
	if !strings.Contains(mock.content, "auto-close") {
		t.Errorf("content = %q", mock.content)
	}
}

func TestFromConfig_Empty(t *testing.T) {
	n, err := FromConfig(config.NotifyConfig{})
	if err != nil {
		t.Fatalf("FromConfig(): %v", err)
	}
	// Empty stack still accepts events.
	if err := n.Send(context.Background(), testEvent()); err != nil {
		t.Errorf("empty notifier Send() = %v", err)
	}
}

func TestFromConfig_SlackNeedsChannel(t *testing.T) {
	_, err := FromConfig(config.NotifyConfig{Slack: config.SlackConfig{Token: "xoxb-1"}})
	if err == nil {
		t.Fatal("FromConfig() accepted slack token without channel")
	}
}
