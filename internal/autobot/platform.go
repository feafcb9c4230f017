package autobot

import (
	"context"
	"io"
)

// Platform is the read side of the chat service.
type Platform interface {
	// LookupChannel returns the live channel or thread with id, or nil, nil
	// when it no longer exists.
	LookupChannel(ctx context.Context, id string) (*Channel, error)

	// ResolveChannelByName finds a channel in guildID by exact name.
	// Returns nil, nil when no channel has that name.
	ResolveChannelByName(ctx context.Context, guildID, name string) (*Channel, error)

	// Threads lists the public threads under parent, active and archived.
	Threads(ctx context.Context, parent *Channel) ([]*Channel, error)

	// History returns up to limit messages posted after afterID, oldest
	// first. An empty afterID starts from the beginning of the channel.
	History(ctx context.Context, ch *Channel, afterID string, limit int) ([]*Message, error)
}

// Fetcher streams the bytes behind an attachment URL into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Acknowledger marks a message once its images are archived.
type Acknowledger interface {
	Acknowledge(ctx context.Context, msg *Message) error
}

// Recorder receives pipeline counters.
type Recorder interface {
	ImageSaved()
	MessageIngested()
	IngestFailed()
	FileArchived()
	MirrorFailed()
}

// NopRecorder discards all counters.
type NopRecorder struct{}

func (NopRecorder) ImageSaved()      {}
func (NopRecorder) MessageIngested() {}
func (NopRecorder) IngestFailed()    {}
func (NopRecorder) FileArchived()    {}
func (NopRecorder) MirrorFailed()    {}
