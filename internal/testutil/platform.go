package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"autobot-go/internal/autobot"
)

// FakePlatform is an in-memory chat platform. History is kept per channel
// in posting order; message ids are compared as decimal numbers so
// "after" paging behaves like snowflakes.
type FakePlatform struct {
	mu          sync.Mutex
	channels    map[string]*autobot.Channel
	threads     map[string][]*autobot.Channel
	history     map[string][]*autobot.Message
	historyErrs map[string]error

	HistoryCalls []string
}

var _ autobot.Platform = (*FakePlatform)(nil)

func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		channels:    make(map[string]*autobot.Channel),
		threads:     make(map[string][]*autobot.Channel),
		history:     make(map[string][]*autobot.Message),
		historyErrs: make(map[string]error),
	}
}

// AddChannel registers ch. Threads are also listed under their parent.
func (p *FakePlatform) AddChannel(ch *autobot.Channel) *autobot.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[ch.ID] = ch
	if ch.IsThread() {
		p.threads[ch.ParentID] = append(p.threads[ch.ParentID], ch)
	}
	return ch
}

// RemoveChannel makes id unresolvable, as if the channel was deleted.
func (p *FakePlatform) RemoveChannel(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.channels, id)
}

// Post appends messages to the history of their channel.
func (p *FakePlatform) Post(msgs ...*autobot.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		p.history[m.Channel.ID] = append(p.history[m.Channel.ID], m)
	}
}

// FailHistory makes History for channelID return err.
func (p *FakePlatform) FailHistory(channelID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.historyErrs[channelID] = err
}

func (p *FakePlatform) LookupChannel(_ context.Context, id string) (*autobot.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channels[id], nil
}

func (p *FakePlatform) ResolveChannelByName(_ context.Context, guildID, name string) (*autobot.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.channels))
	for id := range p.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ch := p.channels[id]
		if ch.GuildID == guildID && ch.Name == name {
			return ch, nil
		}
	}
	return nil, nil
}

func (p *FakePlatform) Threads(_ context.Context, parent *autobot.Channel) ([]*autobot.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*autobot.Channel(nil), p.threads[parent.ID]...), nil
}

func (p *FakePlatform) History(ctx context.Context, ch *autobot.Channel, afterID string, limit int) ([]*autobot.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.HistoryCalls = append(p.HistoryCalls, ch.ID+"@"+afterID)
	if err := p.historyErrs[ch.ID]; err != nil {
		return nil, err
	}
	if _, ok := p.channels[ch.ID]; !ok {
		return nil, errors.New("unknown channel")
	}

	var page []*autobot.Message
	for _, m := range p.history[ch.ID] {
		if afterID != "" && !idAfter(m.ID, afterID) {
			continue
		}
		page = append(page, m)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func idAfter(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
