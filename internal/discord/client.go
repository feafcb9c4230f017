// Package discord connects the archiver to Discord through discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/ratelimit"

	"autobot-go/internal/autobot"
)

const threadPageSize = 100

// Client implements autobot.Platform and autobot.Acknowledger over a
// discordgo session. History requests are rate limited.
type Client struct {
	session *discordgo.Session
	limiter ratelimit.Limiter
	emoji   string
}

var (
	_ autobot.Platform     = (*Client)(nil)
	_ autobot.Acknowledger = (*Client)(nil)
)

// NewClient wraps session. requestsPerSecond bounds history paging; zero
// disables the limit.
func NewClient(session *discordgo.Session, emoji string, requestsPerSecond int) *Client {
	limiter := ratelimit.NewUnlimited()
	if requestsPerSecond > 0 {
		limiter = ratelimit.New(requestsPerSecond)
	}
	return &Client{session: session, limiter: limiter, emoji: emoji}
}

func (c *Client) LookupChannel(ctx context.Context, id string) (*autobot.Channel, error) {
	raw, err := c.channel(ctx, id)
	if err != nil || raw == nil {
		return nil, err
	}
	return c.convert(ctx, raw), nil
}

func (c *Client) ResolveChannelByName(ctx context.Context, guildID, name string) (*autobot.Channel, error) {
	channels, err := c.guildChannels(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for _, ch := range channels {
		if ch.Name == name && !ch.IsThread() {
			return toChannel(ch, ""), nil
		}
	}
	return nil, nil
}

// Threads lists the active and archived public threads of parent.
func (c *Client) Threads(ctx context.Context, parent *autobot.Channel) ([]*autobot.Channel, error) {
	seen := make(map[string]bool)
	var threads []*autobot.Channel
	add := func(list []*discordgo.Channel) {
		for _, th := range list {
			if th.ParentID != parent.ID || seen[th.ID] {
				continue
			}
			seen[th.ID] = true
			threads = append(threads, toChannel(th, parent.Name))
		}
	}

	active, err := c.session.GuildThreadsActive(parent.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing active threads: %w", err)
	}
	add(active.Threads)

	var before *time.Time
	for {
		c.limiter.Take()
		page, err := c.session.ThreadsArchived(parent.ID, before, threadPageSize, discordgo.WithContext(ctx))
		if err != nil {
			if isForbidden(err) {
				break
			}
			return nil, fmt.Errorf("listing archived threads of %s: %w", parent.Name, err)
		}
		add(page.Threads)
		if !page.HasMore || len(page.Threads) == 0 {
			break
		}
		last := page.Threads[len(page.Threads)-1]
		if last.ThreadMetadata == nil {
			break
		}
		ts := last.ThreadMetadata.ArchiveTimestamp
		before = &ts
	}
	return threads, nil
}

// History returns up to limit messages after afterID, oldest first.
func (c *Client) History(ctx context.Context, ch *autobot.Channel, afterID string, limit int) ([]*autobot.Message, error) {
	if afterID == "" {
		afterID = "0"
	}
	c.limiter.Take()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := c.session.ChannelMessages(ch.ID, limit, "", afterID, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("reading history of %s: %w", ch.Label(), err)
	}
	sortOldestFirst(raw)

	msgs := make([]*autobot.Message, 0, len(raw))
	for _, m := range raw {
		msgs = append(msgs, toMessage(m, ch))
	}
	return msgs, nil
}

// Acknowledge reacts to msg with the configured emoji.
func (c *Client) Acknowledge(ctx context.Context, msg *autobot.Message) error {
	if c.emoji == "" {
		return nil
	}
	return c.session.MessageReactionAdd(msg.Channel.ID, msg.ID, c.emoji, discordgo.WithContext(ctx))
}

// JoinThread adds the bot to a thread so its messages are delivered.
func (c *Client) JoinThread(ctx context.Context, id string) error {
	return c.session.ThreadJoin(id, discordgo.WithContext(ctx))
}

// GuildRoles returns the roles of guildID, from the state cache when possible.
func (c *Client) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if g, err := c.session.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	return c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
}

func (c *Client) convert(ctx context.Context, raw *discordgo.Channel) *autobot.Channel {
	parentName := ""
	if raw.IsThread() && raw.ParentID != "" {
		if parent, err := c.channel(ctx, raw.ParentID); err == nil && parent != nil {
			parentName = parent.Name
		}
	}
	return toChannel(raw, parentName)
}

// channel reads id from the state cache, then the API. Unknown channels
// are reported as nil, nil.
func (c *Client) channel(ctx context.Context, id string) (*discordgo.Channel, error) {
	if ch, err := c.session.State.Channel(id); err == nil {
		return ch, nil
	}
	ch, err := c.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownChannel(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching channel %s: %w", id, err)
	}
	return ch, nil
}

func (c *Client) guildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if g, err := c.session.State.Guild(guildID); err == nil && len(g.Channels) > 0 {
		return g.Channels, nil
	}
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing channels of guild %s: %w", guildID, err)
	}
	return channels, nil
}

func isUnknownChannel(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownChannel {
		return true
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}

func isForbidden(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden
}
