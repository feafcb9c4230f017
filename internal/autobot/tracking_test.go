package autobot_test

import (
	"context"
	"errors"
	"testing"

	"autobot-go/internal/autobot"
)

func TestService_Track(t *testing.T) {
	ctx := context.Background()

	t.Run("starts then reports already tracked", func(t *testing.T) {
		f := newFixture(t)

		res, err := f.svc.Track(ctx, f.general)
		if err != nil {
			t.Fatalf("Track() error = %v", err)
		}
		if res != autobot.TrackStarted {
			t.Errorf("Track() = %v, want TrackStarted", res)
		}

		res, err = f.svc.Track(ctx, f.general)
		if err != nil {
			t.Fatalf("second Track() error = %v", err)
		}
		if res != autobot.TrackAlreadyActive {
			t.Errorf("second Track() = %v, want TrackAlreadyActive", res)
		}
	})

	t.Run("re-enables an untracked channel", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Track(ctx, f.general); err != nil {
			t.Fatalf("Track() error = %v", err)
		}
		if _, _, err := f.svc.Untrack(ctx, guildID, "general"); err != nil {
			t.Fatalf("Untrack() error = %v", err)
		}

		res, err := f.svc.Track(ctx, f.general)
		if err != nil {
			t.Fatalf("Track() error = %v", err)
		}
		if res != autobot.TrackStarted {
			t.Errorf("Track() = %v, want TrackStarted", res)
		}
		stats, _ := f.ledger.Stats(ctx)
		if stats.TrackedChannels != 1 || stats.UntrackedChannels != 0 {
			t.Errorf("stats = %+v, want one tracked row", stats)
		}
	})
}

func TestService_Untrack(t *testing.T) {
	ctx := context.Background()

	t.Run("stops a tracked channel", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Track(ctx, f.general); err != nil {
			t.Fatalf("Track() error = %v", err)
		}

		ch, res, err := f.svc.Untrack(ctx, guildID, "general")
		if err != nil {
			t.Fatalf("Untrack() error = %v", err)
		}
		if res != autobot.UntrackStopped || ch.ID != "42" {
			t.Errorf("Untrack() = %v, %v, want channel 42 stopped", ch, res)
		}
		if tracked, _ := f.ledger.IsTracked(ctx, "42"); tracked {
			t.Error("channel still tracked after Untrack")
		}
	})

	t.Run("never tracked channel leaves the table unchanged", func(t *testing.T) {
		f := newFixture(t)

		_, res, err := f.svc.Untrack(ctx, guildID, "general")
		if err != nil {
			t.Fatalf("Untrack() error = %v", err)
		}
		if res != autobot.UntrackNotTracked {
			t.Errorf("Untrack() = %v, want UntrackNotTracked", res)
		}
		stats, _ := f.ledger.Stats(ctx)
		if stats.TrackedChannels+stats.UntrackedChannels != 0 {
			t.Errorf("channels table has rows: %+v", stats)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.svc.Untrack(ctx, guildID, "nope")
		if !errors.Is(err, autobot.ErrChannelNotFound) {
			t.Errorf("Untrack() error = %v, want ErrChannelNotFound", err)
		}
	})
}

func TestService_ListTracked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	memes := f.platform.AddChannel(&autobot.Channel{ID: "44", GuildID: guildID, Name: "memes"})
	gone := f.platform.AddChannel(&autobot.Channel{ID: "45", GuildID: guildID, Name: "old"})
	other := f.platform.AddChannel(&autobot.Channel{ID: "46", GuildID: "8", Name: "elsewhere"})

	for _, ch := range []*autobot.Channel{f.general, memes, gone, other} {
		if _, err := f.svc.Track(ctx, ch); err != nil {
			t.Fatalf("Track(%s) error = %v", ch.Name, err)
		}
	}
	f.platform.RemoveChannel("45")

	got, err := f.svc.ListTracked(ctx, guildID)
	if err != nil {
		t.Fatalf("ListTracked() error = %v", err)
	}
	var names []string
	for _, ch := range got {
		names = append(names, ch.Name)
	}
	if len(names) != 2 || names[0] != "general" || names[1] != "memes" {
		t.Errorf("ListTracked() = %v, want [general memes]", names)
	}
}

func TestService_ShouldIngest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	public := f.platform.AddChannel(&autobot.Channel{ID: "43", GuildID: guildID, Name: "cats", Kind: autobot.KindThread, ParentID: "42", ParentName: "general"})
	private := f.platform.AddChannel(&autobot.Channel{ID: "47", GuildID: guildID, Name: "mods", Kind: autobot.KindThread, ParentID: "42", ParentName: "general", Private: true})
	untracked := f.platform.AddChannel(&autobot.Channel{ID: "44", GuildID: guildID, Name: "memes"})

	if _, err := f.svc.Track(ctx, f.general); err != nil {
		t.Fatalf("Track() error = %v", err)
	}

	tests := []struct {
		name string
		ch   *autobot.Channel
		want bool
	}{
		{"tracked channel", f.general, true},
		{"public thread of tracked parent", public, true},
		{"private thread of tracked parent", private, false},
		{"untracked channel", untracked, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.ShouldIngest(ctx, tt.ch)
			if err != nil {
				t.Fatalf("ShouldIngest() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldIngest() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("join only public threads of tracked parents", func(t *testing.T) {
		if ok, _ := f.svc.ShouldJoin(ctx, public); !ok {
			t.Error("ShouldJoin(public) = false, want true")
		}
		if ok, _ := f.svc.ShouldJoin(ctx, private); ok {
			t.Error("ShouldJoin(private) = true, want false")
		}
		if ok, _ := f.svc.ShouldJoin(ctx, f.general); ok {
			t.Error("ShouldJoin(channel) = true, want false")
		}
	})
}
