package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/pagewrap/internal/assemble"
	"git.home.luguber.info/inful/pagewrap/internal/config"
	"git.home.luguber.info/inful/pagewrap/internal/journal"
	"git.home.luguber.info/inful/pagewrap/internal/logfields"
	"git.home.luguber.info/inful/pagewrap/internal/notify"
)

// sinks receive every finished pass: the optional journal and event publisher.
type sinks struct {
	journal   *journal.Journal
	publisher notify.Publisher
	logger    *slog.Logger
}

// openSinks opens the journal and NATS connection when configured.
func openSinks(cfg *config.Config, logger *slog.Logger) (*sinks, error) {
	s := &sinks{publisher: notify.Noop{}, logger: logger}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		s.journal = j
	}
	if cfg.Notify.NATSURL != "" {
		p, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.publisher = p
	}
	return s, nil
}

// Record stores and announces r. Sink failures are logged, never returned.
func (s *sinks) Record(ctx context.Context, r *assemble.Report) {
	if r == nil {
		return
	}
	if s.journal != nil {
		if err := s.journal.Record(ctx, r); err != nil {
			s.logger.Warn("Failed to record pass in journal", logfields.PassID(r.PassID), logfields.Error(err))
		}
	}
	if err := s.publisher.Publish(ctx, r); err != nil {
		s.logger.Warn("Failed to publish pass event", logfields.PassID(r.PassID), logfields.Error(err))
	}
}

func (s *sinks) Close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("Failed to close journal", logfields.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn("Failed to close publisher", logfields.Error(err))
		}
	}
}
