// Package download fetches attachment bytes over HTTP.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"

	"autobot-go/internal/autobot"
	"autobot-go/internal/config"
)

// ErrTooLarge is returned when a response body exceeds the size limit.
var ErrTooLarge = errors.New("attachment exceeds size limit")

// HTTPFetcher downloads attachments with a size cap.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

var _ autobot.Fetcher = (*HTTPFetcher)(nil)

// NewSafeClient returns a client that refuses private, loopback and
// link-local targets, checked after DNS resolution.
func NewSafeClient(timeout time.Duration) *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(cfg).Client
}

// NewHTTPFetcher wraps client. A maxSize of 0 disables the cap.
func NewHTTPFetcher(client *http.Client, maxSize int64) *HTTPFetcher {
	return &HTTPFetcher{client: client, maxSize: maxSize}
}

// NewFetcherFromConfig builds the fetcher used by the bot. The address guard
// is only dropped when allow_private is set.
func NewFetcherFromConfig(cfg *config.Config) (*HTTPFetcher, error) {
	timeout, err := cfg.DownloadTimeout()
	if err != nil {
		return nil, err
	}
	client := NewSafeClient(timeout)
	if cfg.Download.AllowPrivate {
		client = &http.Client{Timeout: timeout}
	}
	return NewHTTPFetcher(client, cfg.Download.MaxSize), nil
}

// Fetch copies the body at url into w and returns the byte count.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("requesting %s: unexpected status %s", url, resp.Status)
	}
	if f.maxSize > 0 && resp.ContentLength > f.maxSize {
		return 0, fmt.Errorf("%s is %d bytes: %w", url, resp.ContentLength, ErrTooLarge)
	}

	body := io.Reader(resp.Body)
	if f.maxSize > 0 {
		body = io.LimitReader(resp.Body, f.maxSize+1)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("reading %s: %w", url, err)
	}
	if f.maxSize > 0 && n > f.maxSize {
		return n, fmt.Errorf("%s: %w", url, ErrTooLarge)
	}
	return n, nil
}
