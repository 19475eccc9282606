package notify

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// ChannelMessenger is the part of *discordgo.Session used to post messages
type ChannelMessenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts to one guild text channel
type Discord struct {
	session   ChannelMessenger
	channelID string
}

// NewDiscord creates a Discord sender for the channel
func NewDiscord(session ChannelMessenger, channelID string) *Discord {
	return &Discord{session: session, channelID: channelID}
}

func (d *Discord) Name() string { return "discord" }

// Send posts the message with all mentions disabled
func (d *Discord) Send(ctx context.Context, text string) error {
	_, err := d.session.ChannelMessageSendComplex(d.channelID, &discordgo.MessageSend{
		Content:         text,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}, discordgo.WithContext(ctx))
	return err
}
