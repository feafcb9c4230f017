package app

import (
	"time"

	"autobot-go/internal/autobot"
)

// Run describes one CLI invocation. Its ID tags every log line and error
// report so the lines of one process can be grouped.
type Run struct {
	ID      string
	Command string
	Started time.Time
	Status  string // "success" or "error"
}

// NewRun starts a run record for command.
func NewRun(command string, ids autobot.IDGenerator, clock autobot.Clock) *Run {
	return &Run{
		ID:      ids.New(),
		Command: command,
		Started: clock.Now(),
		Status:  "success",
	}
}

// Fail marks the run as failed.
func (r *Run) Fail() {
	r.Status = "error"
}

// Elapsed returns the run time up to now, rounded to milliseconds.
func (r *Run) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.Started).Round(time.Millisecond)
}
