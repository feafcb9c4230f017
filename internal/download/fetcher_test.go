package download

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autobot-go/internal/config"
)

func newServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "png-bytes", http.StatusOK)
	f := NewHTTPFetcher(srv.Client(), 1024)

	var buf bytes.Buffer
	n, err := f.Fetch(context.Background(), srv.URL, &buf)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n != int64(len("png-bytes")) || buf.String() != "png-bytes" {
		t.Errorf("Fetch() = %d %q, want 9 %q", n, buf.String(), "png-bytes")
	}
}

func TestHTTPFetcher_Fetch_StatusError(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "gone", http.StatusNotFound)
	f := NewHTTPFetcher(srv.Client(), 0)

	var buf bytes.Buffer
	if _, err := f.Fetch(context.Background(), srv.URL, &buf); err == nil {
		t.Error("Fetch() error = nil, want status error")
	}
}

func TestHTTPFetcher_Fetch_TooLarge(t *testing.T) {
	t.Parallel()

	srv := newServer(t, strings.Repeat("x", 100), http.StatusOK)
	f := NewHTTPFetcher(srv.Client(), 10)

	var buf bytes.Buffer
	_, err := f.Fetch(context.Background(), srv.URL, &buf)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Fetch() error = %v, want ErrTooLarge", err)
	}
}

func TestHTTPFetcher_Fetch_Canceled(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "data", http.StatusOK)
	f := NewHTTPFetcher(srv.Client(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if _, err := f.Fetch(ctx, srv.URL, &buf); err == nil {
		t.Error("Fetch() with canceled context error = nil")
	}
}

func TestSafeClient_BlocksLoopback(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "secret", http.StatusOK)
	f := NewHTTPFetcher(NewSafeClient(5*time.Second), 0)

	var buf bytes.Buffer
	if _, err := f.Fetch(context.Background(), srv.URL, &buf); err == nil {
		t.Error("Fetch() of loopback address error = nil, want blocked")
	}
	if buf.Len() != 0 {
		t.Errorf("Fetch() wrote %d bytes from a blocked address", buf.Len())
	}
}

func TestNewFetcherFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig(t.TempDir())
	cfg.Download.Timeout = "7s"

	f, err := NewFetcherFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFetcherFromConfig() error = %v", err)
	}
	if f.client.Timeout != 7*time.Second {
		t.Errorf("client timeout = %v, want 7s", f.client.Timeout)
	}
	if f.maxSize != cfg.Download.MaxSize {
		t.Errorf("maxSize = %d, want %d", f.maxSize, cfg.Download.MaxSize)
	}

	cfg.Download.Timeout = "soon"
	if _, err := NewFetcherFromConfig(cfg); err == nil {
		t.Error("NewFetcherFromConfig() with bad timeout error = nil")
	}
}
