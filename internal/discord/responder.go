package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"autobot-go/internal/autobot"
	"autobot-go/internal/commands"
)

// channelResponder replies into one channel.
type channelResponder struct {
	session   *discordgo.Session
	channelID string
}

var _ commands.Responder = (*channelResponder)(nil)

func (r *channelResponder) Reply(ctx context.Context, text string) error {
	_, err := r.session.ChannelMessageSend(r.channelID, text, discordgo.WithContext(ctx))
	return err
}

func (r *channelResponder) ReplyEmbed(ctx context.Context, e commands.Embed) error {
	fields := make([]embedField, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = embedField{name: f.Name, value: f.Value, inline: f.Inline}
	}
	_, err := r.session.ChannelMessageSendEmbed(r.channelID, toEmbed(e.Title, e.Description, e.Color, fields), discordgo.WithContext(ctx))
	return err
}

func (r *channelResponder) Panel(ctx context.Context, text string) (commands.Panel, error) {
	m, err := r.session.ChannelMessageSend(r.channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return &messagePanel{session: r.session, channelID: r.channelID, messageID: m.ID}, nil
}

func (r *channelResponder) Mention(ch *autobot.Channel) string {
	return mention(ch)
}

func mention(ch *autobot.Channel) string {
	return "<#" + ch.ID + ">"
}

type messagePanel struct {
	session   *discordgo.Session
	channelID string
	messageID string
}

func (p *messagePanel) Update(ctx context.Context, text string) error {
	_, err := p.session.ChannelMessageEdit(p.channelID, p.messageID, text, discordgo.WithContext(ctx))
	return err
}
