// Package scheduler runs periodic maintenance such as archive rotation.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"autobot-go/internal/autobot"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

// Scheduler runs tasks on cron expressions in a fixed time zone. A task
// that is still running when its next tick arrives is skipped.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	logger   autobot.Logger
	onError  func(name string, err error)

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a Scheduler. onError, when set, is called for every failed run.
func New(loc *time.Location, logger autobot.Logger, onError func(name string, err error)) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		location: loc,
		logger:   logger,
		onError:  onError,
		entries:  make(map[string]cron.EntryID),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Schedule registers task under name with a five-field cron spec. An
// existing task with the same name is replaced.
func (s *Scheduler) Schedule(name, spec string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("scheduling %s with %q: %w", name, spec, err)
	}
	if old, ok := s.entries[name]; ok {
		s.cron.Remove(old)
	}
	s.entries[name] = id

	s.logger.Info("task scheduled", "task", name, "cron", spec, "timezone", s.location.String())
	return nil
}

// Next returns the next run time of name, or the zero time if unknown.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) run(name string, task Task) {
	start := time.Now()
	s.logger.Info("task started", "task", name)
	if err := task(s.ctx); err != nil {
		s.logger.Error("task failed", "task", name, "error", err)
		if s.onError != nil {
			s.onError(name, err)
		}
		return
	}
	s.logger.Info("task finished", "task", name, "duration", time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running tasks and waits for them to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RotationTask adapts a Rotator to a Task.
func RotationTask(r *autobot.Rotator, logger autobot.Logger) Task {
	return func(ctx context.Context) error {
		report, err := r.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("rotation report",
			"archived", report.Archived,
			"ignored", report.Ignored,
			"skipped_weeks", report.SkippedWeeks,
			"mirror_failures", report.MirrorFailures,
			"dirs_removed", report.DirsRemoved,
		)
		return nil
	}
}
