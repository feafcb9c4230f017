package app

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"autobot-go/internal/config"
)

// Version is reported to Sentry as the release and printed by the CLI.
var Version = "dev"

const sentryFlushTimeout = 2 * time.Second

// errorReporter forwards unexpected errors to Sentry when a DSN is set.
type errorReporter struct {
	enabled bool
	runID   string
	command string
}

// newErrorReporter initializes the Sentry client. Without a DSN the
// reporter is a no-op.
func newErrorReporter(cfg config.SentryConfig, run *Run) (*errorReporter, error) {
	r := &errorReporter{runID: run.ID, command: run.Command}
	if cfg.DSN == "" {
		return r, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     "autobot@" + Version,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing sentry: %w", err)
	}
	r.enabled = true
	return r, nil
}

// Report sends err to Sentry, tagged with the run.
func (r *errorReporter) Report(err error) {
	if !r.enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("run_id", r.runID)
		scope.SetTag("command", r.command)
		sentry.CaptureException(err)
	})
}

// Flush waits for queued reports.
func (r *errorReporter) Flush() {
	if r.enabled {
		sentry.Flush(sentryFlushTimeout)
	}
}
