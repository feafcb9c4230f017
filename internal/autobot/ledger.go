package autobot

import (
	"context"
	"time"
)

// Ledger is the durable record of tracked channels and processed messages.
// Every write is a single auto-committed statement.
type Ledger interface {
	// IsProcessed reports whether messageID has already been ingested.
	IsProcessed(ctx context.Context, messageID string) (bool, error)

	// RecordProcessed inserts a processed-message row. It returns false
	// without error when the id is already present.
	RecordProcessed(ctx context.Context, messageID, channelID string, date time.Time) (bool, error)

	// IsTracked reports whether channelID has an enabled tracking row.
	IsTracked(ctx context.Context, channelID string) (bool, error)

	// TrackedState returns whether a tracking row exists and its enabled flag.
	TrackedState(ctx context.Context, channelID string) (found, enabled bool, err error)

	// SetTracked creates or updates the tracking row for channelID.
	SetTracked(ctx context.Context, guildID, channelID string, enabled bool) error

	// TrackedChannelIDs lists enabled channel ids. A non-empty guildID
	// narrows the list to that guild and to rows with no recorded guild.
	TrackedChannelIDs(ctx context.Context, guildID string) ([]string, error)

	Close() error
}
