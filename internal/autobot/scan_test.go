package autobot_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"autobot-go/internal/autobot"
	"autobot-go/internal/testutil"
)

func TestService_Scan(t *testing.T) {
	ctx := context.Background()

	t.Run("backfills channels then threads oldest first", func(t *testing.T) {
		f := newFixtureWithPageSize(t, 2)
		th := f.platform.AddChannel(&autobot.Channel{ID: "43", GuildID: guildID, Name: "cats", Kind: autobot.KindThread, ParentID: "42", ParentName: "general"})
		f.platform.AddChannel(&autobot.Channel{ID: "47", GuildID: guildID, Name: "mods", Kind: autobot.KindThread, ParentID: "42", ParentName: "general", Private: true})
		if _, err := f.svc.Track(ctx, f.general); err != nil {
			t.Fatalf("Track() error = %v", err)
		}

		f.platform.Post(
			f.imageMessage("100", f.general, "bob", monday, "a.png"),
			&autobot.Message{ID: "101", Channel: f.general, Author: autobot.Author{Name: "bob"}, CreatedAt: monday},
			f.imageMessage("102", f.general, "alice", monday.Add(time.Hour), "b.png"),
			f.imageMessage("200", th, "carol", monday, "c.png"),
		)

		var order []string
		report, err := f.svc.Scan(ctx, guildID, "", func(p autobot.ScanProgress) {
			if p.Done {
				order = append(order, p.Channel.Label())
			}
		})
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}

		if !reflect.DeepEqual(order, []string{"general", "general-cats"}) {
			t.Errorf("scan order = %v, want [general general-cats]", order)
		}
		if report.Channels != 1 || report.Threads != 1 || report.Messages != 4 || report.Saved != 3 {
			t.Errorf("report = %+v, want 1 channel, 1 thread, 4 messages, 3 saved", report)
		}

		want := []string{
			"2024-06-09/general-cats/carol/carol-0.png",
			"2024-06-09/general/alice/alice-0.png",
			"2024-06-09/general/bob/bob-0.png",
		}
		if got := testutil.ListFiles(t, f.root); !reflect.DeepEqual(got, want) {
			t.Errorf("files = %v, want %v", got, want)
		}
	})

	t.Run("rescan saves nothing new", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Track(ctx, f.general); err != nil {
			t.Fatalf("Track() error = %v", err)
		}
		f.platform.Post(f.imageMessage("100", f.general, "bob", monday, "a.png"))

		if _, err := f.svc.Scan(ctx, guildID, "", nil); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		report, err := f.svc.Scan(ctx, guildID, "", nil)
		if err != nil {
			t.Fatalf("second Scan() error = %v", err)
		}
		if report.Saved != 0 || report.Messages != 1 {
			t.Errorf("second report = %+v, want 1 message, 0 saved", report)
		}
	})

	t.Run("filter limits the scan to one channel", func(t *testing.T) {
		f := newFixture(t)
		memes := f.platform.AddChannel(&autobot.Channel{ID: "44", GuildID: guildID, Name: "memes"})
		for _, ch := range []*autobot.Channel{f.general, memes} {
			if _, err := f.svc.Track(ctx, ch); err != nil {
				t.Fatalf("Track() error = %v", err)
			}
		}
		f.platform.Post(
			f.imageMessage("100", f.general, "bob", monday, "a.png"),
			f.imageMessage("300", memes, "bob", monday, "b.png"),
		)

		report, err := f.svc.Scan(ctx, guildID, "memes", nil)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if report.Channels != 1 || report.Saved != 1 {
			t.Errorf("report = %+v, want only memes", report)
		}
		want := []string{"2024-06-09/memes/bob/bob-0.png"}
		if got := testutil.ListFiles(t, f.root); !reflect.DeepEqual(got, want) {
			t.Errorf("files = %v, want %v", got, want)
		}
	})

	t.Run("filter naming an untracked channel", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Scan(ctx, guildID, "general", nil)
		if !errors.Is(err, autobot.ErrChannelNotFound) {
			t.Errorf("Scan() error = %v, want ErrChannelNotFound", err)
		}
	})

	t.Run("history failure moves on to the next channel", func(t *testing.T) {
		f := newFixture(t)
		memes := f.platform.AddChannel(&autobot.Channel{ID: "44", GuildID: guildID, Name: "memes"})
		for _, ch := range []*autobot.Channel{f.general, memes} {
			if _, err := f.svc.Track(ctx, ch); err != nil {
				t.Fatalf("Track() error = %v", err)
			}
		}
		f.platform.FailHistory("42", errors.New("missing access"))
		f.platform.Post(f.imageMessage("300", memes, "bob", monday, "b.png"))

		report, err := f.svc.Scan(ctx, guildID, "", nil)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if report.FailedChannels != 1 || report.Saved != 1 {
			t.Errorf("report = %+v, want 1 failed channel and 1 saved", report)
		}
	})

	t.Run("cancellation aborts", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Track(ctx, f.general); err != nil {
			t.Fatalf("Track() error = %v", err)
		}
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := f.svc.Scan(canceled, guildID, "", nil); !errors.Is(err, context.Canceled) {
			t.Errorf("Scan() error = %v, want context.Canceled", err)
		}
	})
}
