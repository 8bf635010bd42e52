// Package scheduler triggers periodic automatic exports while collection
// is active.
package scheduler

import (
	"context"
	"path/filepath"
	"time"

	"codeberg.org/mutker/printwatch/internal/export"
	"codeberg.org/mutker/printwatch/internal/logger"
)

const (
	DefaultInterval = 1800 * time.Second

	// AutoSavePrefix names automatic exports.
	AutoSavePrefix = "print_jobs_auto_save"

	maxStep = time.Second
)

type Exporter interface {
	Export(ctx context.Context, destination string) error
}

type Config struct {
	Interval time.Duration
	// Dir receives the automatic exports.
	Dir string
}

type Scheduler struct {
	exp    Exporter
	active func() bool
	log    logger.Logger
	cfg    Config
	clock  func() time.Time

	// Owned by the Run goroutine.
	waited time.Duration
	idle   time.Duration
}

// New returns a scheduler exporting through exp whenever active reports true
// at the end of an interval.
func New(exp Exporter, active func() bool, log logger.Logger, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	return &Scheduler{
		exp:    exp,
		active: active,
		log:    log,
		cfg:    cfg,
		clock:  time.Now,
	}
}

// Run blocks until ctx is done, waking at most once per second to check
// for cancellation.
func (s *Scheduler) Run(ctx context.Context) {
	step := min(s.cfg.Interval, maxStep)
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	s.log.Debug().Dur("interval", s.cfg.Interval).Msg("Export scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Msg("Export scheduler stopped")
			return
		case <-ticker.C:
		}

		s.advance(ctx, step)
	}
}

// advance accounts for d of elapsed time. Only time spent with collection
// active counts toward the interval; stopping collection resets it.
func (s *Scheduler) advance(ctx context.Context, d time.Duration) {
	if !s.active() {
		s.waited = 0
		s.idle += d
		if s.idle >= s.cfg.Interval {
			s.idle = 0
			s.log.Debug().Msg("Skipping automatic export, collection is not active")
		}
		return
	}

	s.idle = 0
	s.waited += d
	if s.waited < s.cfg.Interval {
		return
	}
	s.waited = 0

	dest := filepath.Join(s.cfg.Dir, export.FileName(AutoSavePrefix, s.clock()))
	// The exporter logs its own failures.
	_ = s.exp.Export(ctx, dest)
}
