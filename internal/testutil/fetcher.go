package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"autobot-go/internal/autobot"
)

// FakeFetcher serves attachment bytes from memory.
type FakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	errs   map[string]error
	calls  int
}

var _ autobot.Fetcher = (*FakeFetcher)(nil)

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{bodies: make(map[string][]byte), errs: make(map[string]error)}
}

// Serve registers the body returned for url.
func (f *FakeFetcher) Serve(url string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[url] = body
}

// Fail makes every fetch of url return err.
func (f *FakeFetcher) Fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

// Calls is the number of Fetch calls so far.
func (f *FakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeFetcher) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	f.mu.Lock()
	f.calls++
	body, ok := f.bodies[url]
	err := f.errs[url]
	f.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("no body for %s", url)
	}
	n, err := w.Write(body)
	return int64(n), err
}

// RecordingAcknowledger remembers acknowledged message ids.
type RecordingAcknowledger struct {
	mu  sync.Mutex
	ids []string
	Err error
}

var _ autobot.Acknowledger = (*RecordingAcknowledger)(nil)

func (a *RecordingAcknowledger) Acknowledge(_ context.Context, msg *autobot.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.ids = append(a.ids, msg.ID)
	return nil
}

// IDs returns the acknowledged message ids in order.
func (a *RecordingAcknowledger) IDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.ids...)
}
