package autobot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// The chat service caps distinct reactions per message at 20.
const reactionLimit = 20

// Ingest archives the image attachments of msg unless the ledger already has
// it, and returns how many images were written. Messages without images are
// ignored. Individual attachment failures are logged and skipped; if every
// image fails the message is left unrecorded so a later scan retries it.
func (s *Service) Ingest(ctx context.Context, msg *Message) (int, error) {
	images := msg.ImageAttachments()
	if len(images) == 0 {
		return 0, nil
	}

	if _, busy := s.inflight.LoadOrStore(msg.ID, struct{}{}); busy {
		s.logger.Debug("message already being ingested", "message", msg.ID)
		return 0, nil
	}
	defer s.inflight.Delete(msg.ID)

	processed, err := s.ledger.IsProcessed(ctx, msg.ID)
	if err != nil {
		return 0, fmt.Errorf("checking ledger: %w", err)
	}
	if processed {
		return 0, nil
	}

	date := msg.EffectiveDate().In(s.location)
	dir, err := s.paths.BucketPath(date, msg.Channel.Label(), msg.Author.Name)
	if err != nil {
		return 0, err
	}

	saved := 0
	for _, a := range images {
		path, err := s.saveAttachment(ctx, dir, msg.Author.Name, a)
		if err != nil {
			s.logger.Error("saving attachment failed", "message", msg.ID, "attachment", a.Filename, "error", err)
			continue
		}
		saved++
		s.recorder.ImageSaved()
		s.logger.Info("saved image", "message", msg.ID, "path", path)
	}

	if saved == 0 {
		s.recorder.IngestFailed()
		return 0, fmt.Errorf("no images saved for message %s", msg.ID)
	}

	inserted, err := s.ledger.RecordProcessed(ctx, msg.ID, msg.Channel.ID, date)
	if err != nil {
		return saved, fmt.Errorf("recording message %s: %w", msg.ID, err)
	}
	if !inserted {
		s.logger.Warn("message recorded by another writer", "message", msg.ID)
	}
	s.recorder.MessageIngested()

	s.acknowledge(ctx, msg)
	return saved, nil
}

func (s *Service) saveAttachment(ctx context.Context, dir, author string, a Attachment) (string, error) {
	f, path, err := s.namer.Reserve(dir, author, filepath.Ext(a.Filename))
	if err != nil {
		return "", err
	}

	if _, err := s.fetcher.Fetch(ctx, a.URL, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("downloading %s: %w", a.Filename, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

func (s *Service) acknowledge(ctx context.Context, msg *Message) {
	if s.ack == nil || msg.ReactionCount >= reactionLimit {
		return
	}
	if err := s.ack.Acknowledge(ctx, msg); err != nil {
		s.logger.Warn("acknowledging message failed", "message", msg.ID, "error", err)
	}
}
