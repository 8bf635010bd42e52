package history

import (
	"context"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printjob"
	"github.com/google/uuid"
)

type service struct {
	repo      Repository
	sessionID string
}

// No-op implementation
type noopRecorder struct{}

// NewService returns a Recorder backed by SQLite, or a no-op recorder when
// history is disabled.
func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Job history disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create history repository")
		return nil, err
	}

	svc := newService(repo)
	log.Debug().
		Str("db_path", cfg.DBPath).
		Str("session_id", svc.sessionID).
		Msg("History service initialized")

	return svc, nil
}

func newService(repo Repository) *service {
	return &service{
		repo:      repo,
		sessionID: uuid.New().String(),
	}
}

// Record queues rec for storage. It does not honour ctx cancellation: every
// record the ledger accepted is kept.
func (s *service) Record(_ context.Context, rec printjob.Record) error {
	if err := s.repo.Record(&Entry{SessionID: s.sessionID, Record: rec}); err != nil {
		return errors.New().Wrap(ErrRecordFailed, err)
	}
	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (*noopRecorder) Record(_ context.Context, _ printjob.Record) error {
	return nil
}

func (*noopRecorder) Close() error {
	return nil
}
