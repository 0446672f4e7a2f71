package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSender abstracts the discordgo method we use, enabling test mocks.
type discordSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts events to a Discord channel.
type Discord struct {
	session discordSender
	channel string
}

// NewDiscord creates a Discord notifier from a bot token and channel id. The
// session is REST-only; no gateway connection is opened.
func NewDiscord(token, channel string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &Discord{session: session, channel: channel}, nil
}

// Send implements Notifier.
func (d *Discord) Send(ctx context.Context, ev Event) error {
	_, err := d.session.ChannelMessageSend(d.channel, ev.Text(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("notify: discord post to %s: %w", d.channel, err)
	}
	return nil
}
