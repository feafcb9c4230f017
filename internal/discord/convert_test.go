package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"autobot-go/internal/autobot"
)

func TestToChannel(t *testing.T) {
	t.Parallel()

	t.Run("text channel", func(t *testing.T) {
		ch := toChannel(&discordgo.Channel{ID: "42", GuildID: "7", Name: "general", Type: discordgo.ChannelTypeGuildText}, "")
		if ch.Kind != autobot.KindChannel || ch.Label() != "general" || ch.GuildID != "7" {
			t.Errorf("toChannel() = %+v", ch)
		}
	})

	t.Run("public thread", func(t *testing.T) {
		ch := toChannel(&discordgo.Channel{ID: "43", GuildID: "7", Name: "cats", ParentID: "42", Type: discordgo.ChannelTypeGuildPublicThread}, "general")
		if !ch.IsThread() || ch.Private || ch.Label() != "general-cats" || ch.ParentID != "42" {
			t.Errorf("toChannel() = %+v", ch)
		}
	})

	t.Run("private thread", func(t *testing.T) {
		ch := toChannel(&discordgo.Channel{ID: "44", Name: "mods", ParentID: "42", Type: discordgo.ChannelTypeGuildPrivateThread}, "general")
		if !ch.IsThread() || !ch.Private {
			t.Errorf("toChannel() = %+v, want private thread", ch)
		}
	})
}

func TestToMessage(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 6, 10, 14, 5, 9, 0, time.UTC)
	edited := created.Add(time.Hour)
	ch := &autobot.Channel{ID: "42", Name: "general"}

	m := toMessage(&discordgo.Message{
		ID:              "100",
		Timestamp:       created,
		EditedTimestamp: &edited,
		Author:          &discordgo.User{ID: "9", Username: "bob"},
		Attachments: []*discordgo.MessageAttachment{
			{ID: "a1", Filename: "cat.png", ContentType: "image/png", URL: "https://cdn.example.com/cat.png", Size: 2048},
			nil,
		},
		Reactions: []*discordgo.MessageReactions{{Count: 3}, {Count: 1}},
	}, ch)

	if m.ID != "100" || m.Channel != ch || m.Author.Name != "bob" {
		t.Errorf("toMessage() = %+v", m)
	}
	if !m.EffectiveDate().Equal(edited) {
		t.Errorf("EffectiveDate() = %v, want %v", m.EffectiveDate(), edited)
	}
	if len(m.Attachments) != 1 || m.Attachments[0].Size != 2048 || !m.Attachments[0].IsImage() {
		t.Errorf("attachments = %+v", m.Attachments)
	}
	if m.ReactionCount != 2 {
		t.Errorf("ReactionCount = %d, want 2 distinct reactions", m.ReactionCount)
	}
}

func TestSortOldestFirst(t *testing.T) {
	t.Parallel()

	msgs := []*discordgo.Message{{ID: "1000"}, {ID: "999"}, {ID: "1001"}}
	sortOldestFirst(msgs)
	if msgs[0].ID != "999" || msgs[1].ID != "1000" || msgs[2].ID != "1001" {
		t.Errorf("order = %s %s %s", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}
}

func TestHasRole(t *testing.T) {
	t.Parallel()

	roles := []*discordgo.Role{{ID: "r1", Name: "Admin Bots"}, {ID: "r2", Name: "Members"}}

	tests := []struct {
		name   string
		member []string
		want   bool
	}{
		{"has role", []string{"r2", "r1"}, true},
		{"lacks role", []string{"r2"}, false},
		{"no roles", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasRole(tt.member, roles, "Admin Bots"); got != tt.want {
				t.Errorf("hasRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUnknownChannel(t *testing.T) {
	t.Parallel()

	unknown := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel},
	}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}

	if !isUnknownChannel(unknown) {
		t.Error("isUnknownChannel(10003) = false")
	}
	if isUnknownChannel(forbidden) || isUnknownChannel(errors.New("timeout")) {
		t.Error("isUnknownChannel() = true for other errors")
	}
	if !isForbidden(forbidden) {
		t.Error("isForbidden(403) = false")
	}
}

func TestMention(t *testing.T) {
	t.Parallel()

	if got := mention(&autobot.Channel{ID: "42"}); got != "<#42>" {
		t.Errorf("mention() = %q, want <#42>", got)
	}
}
