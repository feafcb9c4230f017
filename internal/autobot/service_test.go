package autobot_test

import (
	"testing"
	"time"

	"autobot-go/internal/autobot"
	"autobot-go/internal/database"
	"autobot-go/internal/testutil"
)

const guildID = "7"

type fixture struct {
	root     string
	ledger   *database.SQLLedger
	platform *testutil.FakePlatform
	fetcher  *testutil.FakeFetcher
	ack      *testutil.RecordingAcknowledger
	svc      *autobot.Service
	general  *autobot.Channel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPageSize(t, 0)
}

func newFixtureWithPageSize(t *testing.T, pageSize int) *fixture {
	t.Helper()

	f := &fixture{
		root:     t.TempDir(),
		ledger:   testutil.NewTestLedger(t),
		platform: testutil.NewFakePlatform(),
		fetcher:  testutil.NewFakeFetcher(),
		ack:      &testutil.RecordingAcknowledger{},
	}
	f.general = f.platform.AddChannel(&autobot.Channel{ID: "42", GuildID: guildID, Name: "general"})
	f.svc = autobot.NewService(f.ledger, f.platform, f.fetcher, autobot.NewPaths(f.root), autobot.NewNamer(),
		autobot.NewNopLogger(), autobot.ServiceOptions{Acknowledger: f.ack, PageSize: pageSize})
	return f
}

// imageMessage builds a message with one PNG per filename, served by the
// fixture's fetcher.
func (f *fixture) imageMessage(id string, ch *autobot.Channel, author string, at time.Time, filenames ...string) *autobot.Message {
	m := &autobot.Message{
		ID:        id,
		Channel:   ch,
		Author:    autobot.Author{ID: "u-" + author, Name: author},
		CreatedAt: at,
	}
	for _, name := range filenames {
		url := "https://cdn.example.com/" + id + "/" + name
		f.fetcher.Serve(url, []byte("image "+name))
		m.Attachments = append(m.Attachments, autobot.Attachment{
			ID: id + name, Filename: name, ContentType: "image/png", URL: url,
		})
	}
	return m
}
