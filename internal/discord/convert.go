package discord

import (
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"autobot-go/internal/autobot"
)

// toChannel converts a discordgo channel. parentName is only used for threads.
func toChannel(c *discordgo.Channel, parentName string) *autobot.Channel {
	ch := &autobot.Channel{
		ID:      c.ID,
		GuildID: c.GuildID,
		Name:    c.Name,
		Kind:    autobot.KindChannel,
	}
	if c.IsThread() {
		ch.Kind = autobot.KindThread
		ch.ParentID = c.ParentID
		ch.ParentName = parentName
		ch.Private = c.Type == discordgo.ChannelTypeGuildPrivateThread
	}
	return ch
}

// toMessage converts a discordgo message posted in ch.
func toMessage(m *discordgo.Message, ch *autobot.Channel) *autobot.Message {
	msg := &autobot.Message{
		ID:        m.ID,
		Channel:   ch,
		CreatedAt: m.Timestamp,
	}
	if m.EditedTimestamp != nil {
		msg.EditedAt = *m.EditedTimestamp
	}
	if m.Author != nil {
		msg.Author = autobot.Author{ID: m.Author.ID, Name: m.Author.Username, Bot: m.Author.Bot}
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, autobot.Attachment{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			URL:         a.URL,
			Size:        int64(a.Size),
		})
	}
	msg.ReactionCount = len(m.Reactions)
	return msg
}

// sortOldestFirst orders messages by snowflake id, ascending.
func sortOldestFirst(msgs []*discordgo.Message) {
	sort.Slice(msgs, func(i, j int) bool { return snowflakeLess(msgs[i].ID, msgs[j].ID) })
}

func snowflakeLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// hasRole reports whether memberRoles contains a role named roleName.
func hasRole(memberRoles []string, guildRoles []*discordgo.Role, roleName string) bool {
	ids := make(map[string]bool, len(memberRoles))
	for _, id := range memberRoles {
		ids[id] = true
	}
	for _, r := range guildRoles {
		if r != nil && ids[r.ID] && strings.EqualFold(r.Name, roleName) {
			return true
		}
	}
	return false
}

func toEmbed(title, description string, color int, fields []embedField) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{Title: title, Description: description, Color: color}
	for _, f := range fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.name, Value: f.value, Inline: f.inline})
	}
	return e
}

type embedField struct {
	name, value string
	inline      bool
}
