package autobot

import (
	"strings"
	"time"
)

// ChannelKind distinguishes plain channels from threads nested under one.
type ChannelKind int

const (
	KindChannel ChannelKind = iota
	KindThread
)

func (k ChannelKind) String() string {
	if k == KindThread {
		return "thread"
	}
	return "channel"
}

// Channel is a chat channel or thread as seen at the moment it was read.
// ParentID and ParentName are only set for threads.
type Channel struct {
	ID         string
	GuildID    string
	Name       string
	Kind       ChannelKind
	ParentID   string
	ParentName string
	Private    bool
}

// Label returns the folder label for the channel. Threads are labelled
// "<parent>-<thread>" so their images sit next to the parent channel's.
func (c *Channel) Label() string {
	if c.Kind == KindThread && c.ParentName != "" {
		return c.ParentName + "-" + c.Name
	}
	return c.Name
}

func (c *Channel) IsThread() bool { return c.Kind == KindThread }

// Author identifies who posted a message.
type Author struct {
	ID   string
	Name string
	Bot  bool
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID          string
	Filename    string
	ContentType string
	URL         string
	Size        int64
}

// IsImage reports whether the attachment's declared content type is an image.
func (a Attachment) IsImage() bool {
	return strings.Contains(a.ContentType, "image")
}

// Message is a chat message carrying zero or more attachments.
type Message struct {
	ID            string
	Channel       *Channel
	Author        Author
	CreatedAt     time.Time
	EditedAt      time.Time
	Attachments   []Attachment
	ReactionCount int
}

// EffectiveDate is the edit time for edited messages, the creation time
// otherwise. It decides the week bucket and the ledger date.
func (m *Message) EffectiveDate() time.Time {
	if !m.EditedAt.IsZero() {
		return m.EditedAt
	}
	return m.CreatedAt
}

// ImageAttachments returns the attachments whose content type is an image.
func (m *Message) ImageAttachments() []Attachment {
	var images []Attachment
	for _, a := range m.Attachments {
		if a.IsImage() {
			images = append(images, a)
		}
	}
	return images
}
