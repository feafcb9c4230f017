package autobot

import (
	"context"
	"errors"
	"fmt"
)

// ScanProgress is a running count for the channel or thread being scanned.
type ScanProgress struct {
	Channel  *Channel
	Messages int
	Saved    int
	Done     bool
}

// ProgressFunc receives progress after every history page and once more
// when a channel is finished.
type ProgressFunc func(ScanProgress)

// ScanReport summarizes a finished scan.
type ScanReport struct {
	Channels       int
	Threads        int
	Messages       int
	Saved          int
	FailedMessages int
	FailedChannels int
}

// Scan backfills the full history of the tracked channels of guildID, then
// of their public threads, oldest message first. A non-empty filter limits
// the scan to the tracked channel with that name. No cursor is kept; the
// ledger makes repeated scans cheap and safe.
func (s *Service) Scan(ctx context.Context, guildID, filter string, progress ProgressFunc) (*ScanReport, error) {
	channels, err := s.ListTracked(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if filter != "" {
		var matched []*Channel
		for _, ch := range channels {
			if ch.Name == filter {
				matched = append(matched, ch)
			}
		}
		if len(matched) == 0 {
			return nil, fmt.Errorf("%q is not a tracked channel: %w", filter, ErrChannelNotFound)
		}
		channels = matched
	}

	var threads []*Channel
	for _, ch := range channels {
		if ch.IsThread() {
			continue
		}
		found, err := s.platform.Threads(ctx, ch)
		if err != nil {
			return nil, fmt.Errorf("listing threads of %s: %w", ch.Label(), err)
		}
		for _, th := range found {
			if !th.Private {
				threads = append(threads, th)
			}
		}
	}

	s.logger.Info("starting scan", "guild", guildID, "channels", len(channels), "threads", len(threads))

	report := &ScanReport{}
	for _, ch := range channels {
		if err := s.scanOne(ctx, ch, report, progress); err != nil {
			return report, err
		}
		report.Channels++
	}
	for _, th := range threads {
		if err := s.scanOne(ctx, th, report, progress); err != nil {
			return report, err
		}
		report.Threads++
	}

	s.logger.Info("scan complete", "guild", guildID, "messages", report.Messages, "saved", report.Saved)
	return report, nil
}

// scanOne walks one channel's history. Only cancellation aborts the scan;
// other history errors are logged and the walk moves to the next channel.
func (s *Service) scanOne(ctx context.Context, ch *Channel, report *ScanReport, progress ProgressFunc) error {
	p := ScanProgress{Channel: ch}
	notify := func() {
		if progress != nil {
			progress(p)
		}
	}
	notify()

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.platform.History(ctx, ch, after, s.pageSize)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.logger.Error("reading history failed", "channel", ch.Label(), "after", after, "error", err)
			report.FailedChannels++
			break
		}
		if len(page) == 0 {
			break
		}

		for _, m := range page {
			if m.Channel == nil {
				m.Channel = ch
			}
			n, err := s.Ingest(ctx, m)
			if err != nil {
				s.logger.Warn("ingesting message failed", "message", m.ID, "channel", ch.Label(), "error", err)
				report.FailedMessages++
			}
			p.Messages++
			p.Saved += n
		}
		after = page[len(page)-1].ID
		notify()

		if len(page) < s.pageSize {
			break
		}
	}

	report.Messages += p.Messages
	report.Saved += p.Saved
	p.Done = true
	notify()
	return nil
}
