package autobot

import (
	"context"
	"errors"
	"fmt"
)

// ErrChannelNotFound is returned when a channel name or id resolves to nothing.
var ErrChannelNotFound = errors.New("channel not found")

// TrackResult describes the outcome of Track.
type TrackResult int

const (
	TrackStarted TrackResult = iota
	TrackAlreadyActive
)

// UntrackResult describes the outcome of Untrack.
type UntrackResult int

const (
	UntrackStopped UntrackResult = iota
	UntrackNotTracked
)

// Track enables tracking for ch, creating its row on first use.
func (s *Service) Track(ctx context.Context, ch *Channel) (TrackResult, error) {
	found, enabled, err := s.ledger.TrackedState(ctx, ch.ID)
	if err != nil {
		return 0, fmt.Errorf("reading tracking state: %w", err)
	}
	if found && enabled {
		return TrackAlreadyActive, nil
	}

	if err := s.ledger.SetTracked(ctx, ch.GuildID, ch.ID, true); err != nil {
		return 0, fmt.Errorf("enabling tracking: %w", err)
	}
	s.logger.Info("tracking channel", "channel", ch.Label(), "id", ch.ID)
	return TrackStarted, nil
}

// Untrack resolves name within guildID and disables its tracking. The
// resolved channel is returned for reporting.
func (s *Service) Untrack(ctx context.Context, guildID, name string) (*Channel, UntrackResult, error) {
	ch, err := s.platform.ResolveChannelByName(ctx, guildID, name)
	if err != nil {
		return nil, 0, fmt.Errorf("resolving channel %q: %w", name, err)
	}
	if ch == nil {
		return nil, 0, fmt.Errorf("%q: %w", name, ErrChannelNotFound)
	}

	found, enabled, err := s.ledger.TrackedState(ctx, ch.ID)
	if err != nil {
		return ch, 0, fmt.Errorf("reading tracking state: %w", err)
	}
	if !found || !enabled {
		return ch, UntrackNotTracked, nil
	}

	if err := s.ledger.SetTracked(ctx, ch.GuildID, ch.ID, false); err != nil {
		return ch, 0, fmt.Errorf("disabling tracking: %w", err)
	}
	s.logger.Info("stopped tracking channel", "channel", ch.Label(), "id", ch.ID)
	return ch, UntrackStopped, nil
}

// ListTracked returns the tracked channels of guildID that still exist.
// Ids of deleted channels are skipped but left in the ledger.
func (s *Service) ListTracked(ctx context.Context, guildID string) ([]*Channel, error) {
	ids, err := s.ledger.TrackedChannelIDs(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing tracked channels: %w", err)
	}

	var channels []*Channel
	for _, id := range ids {
		ch, err := s.platform.LookupChannel(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("looking up channel %s: %w", id, err)
		}
		if ch == nil {
			s.logger.Debug("tracked channel no longer exists", "id", id)
			continue
		}
		if guildID != "" && ch.GuildID != guildID {
			continue
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// ShouldIngest reports whether new messages in ch are archived: ch itself is
// tracked, or ch is a public thread whose parent is tracked.
func (s *Service) ShouldIngest(ctx context.Context, ch *Channel) (bool, error) {
	tracked, err := s.ledger.IsTracked(ctx, ch.ID)
	if err != nil {
		return false, fmt.Errorf("checking tracking state: %w", err)
	}
	if tracked || !ch.IsThread() || ch.Private {
		return tracked, nil
	}

	tracked, err = s.ledger.IsTracked(ctx, ch.ParentID)
	if err != nil {
		return false, fmt.Errorf("checking parent tracking state: %w", err)
	}
	return tracked, nil
}

// ShouldJoin reports whether the bot should join a newly created thread so
// its messages get delivered.
func (s *Service) ShouldJoin(ctx context.Context, thread *Channel) (bool, error) {
	if !thread.IsThread() || thread.Private {
		return false, nil
	}
	tracked, err := s.ledger.IsTracked(ctx, thread.ParentID)
	if err != nil {
		return false, fmt.Errorf("checking parent tracking state: %w", err)
	}
	return tracked, nil
}
