// Package commands implements the bot's chat commands independently of
// the chat client library.
package commands

import (
	"context"

	"autobot-go/internal/autobot"
)

// Request is one prefixed chat message addressed to the bot.
type Request struct {
	GuildID string
	Channel *autobot.Channel
	Author  autobot.Author
	// IsAdmin is true when the author holds the configured admin role.
	IsAdmin bool
	Content string
}

// EmbedField is one titled block of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich reply.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
}

// Panel is a posted reply that can be edited in place.
type Panel interface {
	Update(ctx context.Context, text string) error
}

// Responder posts replies into the channel a command came from.
type Responder interface {
	Reply(ctx context.Context, text string) error
	ReplyEmbed(ctx context.Context, embed Embed) error
	Panel(ctx context.Context, text string) (Panel, error)
	// Mention renders a clickable reference to ch.
	Mention(ch *autobot.Channel) string
}

// Tracker is the part of autobot.Service the commands drive.
type Tracker interface {
	Track(ctx context.Context, ch *autobot.Channel) (autobot.TrackResult, error)
	Untrack(ctx context.Context, guildID, name string) (*autobot.Channel, autobot.UntrackResult, error)
	ListTracked(ctx context.Context, guildID string) ([]*autobot.Channel, error)
	Scan(ctx context.Context, guildID, filter string, progress autobot.ProgressFunc) (*autobot.ScanReport, error)
}

// Resolver finds the channel named by a track argument.
type Resolver interface {
	LookupChannel(ctx context.Context, id string) (*autobot.Channel, error)
	ResolveChannelByName(ctx context.Context, guildID, name string) (*autobot.Channel, error)
}

// CommandRecorder counts handled commands.
type CommandRecorder interface {
	CommandHandled(command, outcome string)
}

var _ Tracker = (*autobot.Service)(nil)
