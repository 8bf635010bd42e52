// Package service owns the collection lifecycle: it starts and stops the
// collector and exposes the ledger to the shell, the HTTP surface and the
// export scheduler.
package service

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/printwatch/internal/collector"
	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/export"
	"codeberg.org/mutker/printwatch/internal/history"
	"codeberg.org/mutker/printwatch/internal/ledger"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/scheduler"
	"codeberg.org/mutker/printwatch/internal/source"
)

// SavePrefix names exports made by Save.
const SavePrefix = "print_jobs"

type Config struct {
	Collector        collector.Config
	ExportDir        string
	ExportInterval   time.Duration
	LedgerCapacity   int
	LedgerEvictBatch int
}

// Stats is a point-in-time view for reports.
type Stats struct {
	ledger.Statistics
	Active bool
	State  State
}

type Option func(*options)

type options struct {
	recorder history.Recorder
	clock    func() time.Time
}

// WithRecorder stores every new record through r. The service closes r.
func WithRecorder(r history.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithClock replaces time.Now for observation times and export names.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

type CollectorService struct {
	log       logger.Logger
	cfg       Config
	ledger    *ledger.Ledger
	collector *collector.Collector
	exporter  *export.Exporter
	recorder  history.Recorder
	clock     func() time.Time

	// lifecycleMu serializes Start, Stop and Close. It is never held while
	// waiting on the ledger lock.
	lifecycleMu sync.Mutex
	state       atomic.Int32
	active      atomic.Bool
	closed      bool
	cancel      context.CancelFunc
	done        chan struct{}

	schedCancel context.CancelFunc
	schedDone   chan struct{}
}

// New builds the service and starts the export scheduler. Collection stays
// stopped until Start.
func New(src source.Source, log logger.Logger, cfg Config, opts ...Option) (*CollectorService, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}

	l := ledger.New(
		ledger.WithCapacity(cfg.LedgerCapacity),
		ledger.WithEvictBatch(cfg.LedgerEvictBatch),
	)

	collectorOpts := []collector.Option{collector.WithClock(o.clock)}
	if o.recorder != nil {
		collectorOpts = append(collectorOpts, collector.WithSink(o.recorder))
	}
	c, err := collector.New(src, l, log, cfg.Collector, collectorOpts...)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInitApp, err)
	}

	s := &CollectorService{
		log:       log,
		cfg:       cfg,
		ledger:    l,
		collector: c,
		exporter:  export.New(l, log),
		recorder:  o.recorder,
		clock:     o.clock,
	}

	sched := scheduler.New(s.exporter, s.IsActive, log, scheduler.Config{
		Interval: cfg.ExportInterval,
		Dir:      cfg.ExportDir,
	})
	ctx, cancel := context.WithCancel(context.Background())
	s.schedCancel = cancel
	s.schedDone = make(chan struct{})
	go func() {
		defer close(s.schedDone)
		sched.Run(ctx)
	}()

	return s, nil
}

// Start launches the collector. Starting an active service is a no-op.
func (s *CollectorService) Start() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.active.Load() {
		s.log.Info().Msg("Monitoring is already active.")
		return nil
	}

	s.setState(StateStarting)
	if s.closed {
		s.setState(StateStopped)
		err := errors.New().Wrap(ErrStartCollect, errors.New().New(ErrClosed))
		s.log.Error().Msgf("Failed to start monitoring: %v", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.active.Store(true)
	go func() {
		defer close(done)
		s.collector.Run(ctx)
	}()
	s.cancel = cancel
	s.done = done

	s.setState(StateActive)
	s.log.Info().Msg("Print job monitoring started.")
	return nil
}

// Stop cancels the collector and waits for it to exit. Once Stop returns the
// collector no longer touches the ledger. Stopping an idle service is a no-op.
func (s *CollectorService) Stop() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	return s.stop()
}

func (s *CollectorService) stop() error {
	if !s.active.Load() {
		s.log.Info().Msg("Monitoring is not active.")
		return nil
	}

	s.setState(StateStopping)
	s.active.Store(false)
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.setState(StateStopped)
	s.log.Info().Msg("Print job monitoring stopped.")
	return nil
}

func (s *CollectorService) IsActive() bool {
	return s.active.Load()
}

func (s *CollectorService) State() State {
	return State(s.state.Load())
}

func (s *CollectorService) setState(st State) {
	s.state.Store(int32(st))
	s.log.Debug().Str("state", st.String()).Msg("Collection state changed")
}

// Save exports the ledger to a timestamped file in the export directory and
// returns its path.
func (s *CollectorService) Save(ctx context.Context) (string, error) {
	path := filepath.Join(s.cfg.ExportDir, export.FileName(SavePrefix, s.clock()))
	return path, s.exporter.Export(ctx, path)
}

// Export writes the ledger to path, or to the default export file in the
// export directory when path is empty.
func (s *CollectorService) Export(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = filepath.Join(s.cfg.ExportDir, export.DefaultExportName)
	}
	return path, s.exporter.Export(ctx, path)
}

func (s *CollectorService) Stats() Stats {
	return Stats{
		Statistics: s.ledger.Statistics(),
		Active:     s.IsActive(),
		State:      s.State(),
	}
}

// Ledger exposes the record store for read-only consumers.
func (s *CollectorService) Ledger() *ledger.Ledger {
	return s.ledger
}

// Close stops collection and the scheduler, then closes the history
// recorder. It waits for the scheduler at most until ctx is done.
func (s *CollectorService) Close(ctx context.Context) error {
	errFactory := errors.New()

	s.lifecycleMu.Lock()
	if s.closed {
		s.lifecycleMu.Unlock()
		return nil
	}
	s.closed = true
	var stopErr error
	if s.active.Load() {
		stopErr = s.stop()
	}
	s.lifecycleMu.Unlock()

	s.schedCancel()
	select {
	case <-s.schedDone:
	case <-ctx.Done():
		return errFactory.Wrap(errors.ErrShutdownFailed, ctx.Err())
	}

	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			return errFactory.Wrap(errors.ErrShutdownFailed, err)
		}
	}

	return stopErr
}
