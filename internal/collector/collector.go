// Package collector polls the job source and feeds new jobs into the ledger.
package collector

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/ledger"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printjob"
	"codeberg.org/mutker/printwatch/internal/source"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultBackoff  = 5 * time.Second
	DefaultMaxJobs  = 1000
)

type Config struct {
	// Interval is the pause after a completed sweep.
	Interval time.Duration
	// Backoff is the pause after an empty or failed printer enumeration.
	Backoff time.Duration
	// MaxJobs caps the jobs requested per printer and sweep.
	MaxJobs int
}

func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Backoff:  DefaultBackoff,
		MaxJobs:  DefaultMaxJobs,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "interval must be positive")
	}
	if c.Backoff <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "backoff must be positive")
	}
	if c.MaxJobs <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "max jobs must be positive")
	}
	return nil
}

// Sink receives every record the ledger accepted.
type Sink interface {
	Record(ctx context.Context, rec printjob.Record) error
}

// SweepResult counts what one sweep saw.
type SweepResult struct {
	Printers   int
	Jobs       int
	Inserted   int
	Duplicates int
	Failures   int
}

type Option func(*Collector)

// WithClock replaces time.Now as the source of ObservedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.clock = now
	}
}

// WithSink forwards inserted records to s.
func WithSink(s Sink) Option {
	return func(c *Collector) {
		c.sink = s
	}
}

type Collector struct {
	src    source.Source
	ledger *ledger.Ledger
	log    logger.Logger
	cfg    Config
	sink   Sink

	clockMu sync.Mutex
	clock   func() time.Time
	last    time.Time
}

func New(src source.Source, l *ledger.Ledger, log logger.Logger, cfg Config, opts ...Option) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Collector{
		src:    src,
		ledger: l,
		log:    log,
		cfg:    cfg,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run sweeps until ctx is canceled. Source failures are logged and retried
// after the backoff; they never end the loop.
func (c *Collector) Run(ctx context.Context) {
	c.log.Debug().Msg("Collector loop started")
	defer func() {
		c.log.Debug().Msg("Collector loop stopped")
	}()

	for {
		_, err := c.Sweep(ctx)
		if ctx.Err() != nil {
			return
		}

		pause := c.cfg.Interval
		if err != nil {
			pause = c.cfg.Backoff
		}
		if !sleep(ctx, pause) {
			return
		}
	}
}

// Sweep makes one pass over every printer. It returns an error only when the
// printer list could not be obtained or was empty; per-printer failures are
// logged and counted in the result.
func (c *Collector) Sweep(ctx context.Context) (SweepResult, error) {
	errFactory := errors.New()
	start := time.Now()

	var res SweepResult

	printers, err := c.src.ListPrinters(ctx)
	if err != nil {
		if ctx.Err() != nil {
			sweepsTotal.WithLabelValues("canceled").Inc()
			return res, ctx.Err()
		}
		sweepsTotal.WithLabelValues("list_failed").Inc()
		c.log.Error().Msgf("Failed to enumerate printers: %v", err)
		return res, errFactory.Wrap(ErrListPrinters, err)
	}
	if len(printers) == 0 {
		sweepsTotal.WithLabelValues("no_printers").Inc()
		c.log.Warn().Msg("No printers found during monitoring cycle")
		return res, errFactory.New(ErrNoPrinters)
	}

	res.Printers = len(printers)
	for _, p := range printers {
		if ctx.Err() != nil {
			break
		}
		if p.Name == "" {
			res.Failures++
			printerFailures.WithLabelValues("unnamed").Inc()
			c.log.Warn().Msg("Skipping printer without a name")
			continue
		}
		c.sweepPrinter(ctx, p.Name, &res)
	}

	ledgerRecords.Set(float64(c.ledger.Len()))
	sweepDuration.Observe(time.Since(start).Seconds())

	status := "ok"
	switch {
	case ctx.Err() != nil:
		status = "canceled"
	case res.Failures > 0:
		status = "partial"
	}
	sweepsTotal.WithLabelValues(status).Inc()

	c.log.Debug().
		Int("printers", res.Printers).
		Int("jobs", res.Jobs).
		Int("inserted", res.Inserted).
		Int("failures", res.Failures).
		Dur("duration", time.Since(start)).
		Msg("Sweep completed")

	return res, nil
}

func (c *Collector) sweepPrinter(ctx context.Context, name string, res *SweepResult) {
	h, err := c.src.OpenPrinter(ctx, name)
	if err != nil {
		res.Failures++
		printerFailures.WithLabelValues("open").Inc()
		c.log.Error().Msgf("Could not open printer: %s: %v", name, err)
		return
	}
	defer func() {
		if err := c.src.ClosePrinter(h); err != nil {
			printerFailures.WithLabelValues("close").Inc()
			c.log.Warn().Msgf("Failed to close printer %s: %v", name, err)
		}
	}()

	jobs, err := c.src.ListJobs(ctx, h, c.cfg.MaxJobs)
	if err != nil {
		res.Failures++
		printerFailures.WithLabelValues("list_jobs").Inc()
		c.log.Error().Msgf("Failed to enumerate jobs for printer %s: %v", name, err)
		return
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}

		res.Jobs++
		jobsObserved.Inc()

		rec := printjob.Normalize(name, job, c.now())
		if c.ledger.Append(rec) == ledger.DuplicateSkipped {
			res.Duplicates++
			jobsDuplicate.Inc()
			continue
		}

		res.Inserted++
		jobsInserted.Inc()
		if ctx.Err() == nil {
			c.log.Info().Msgf("Detected print job: %s on %s - Status: %s", rec.JobID, rec.PrinterName, rec.Status)
		}
		c.forward(ctx, rec)
	}
}

func (c *Collector) forward(ctx context.Context, rec printjob.Record) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Record(ctx, rec); err != nil {
		c.log.Warn().Err(err).Msgf("Failed to record job %s on %s in history", rec.JobID, rec.PrinterName)
	}
}

// now returns the clock reading, never earlier than the previous one.
func (c *Collector) now() time.Time {
	c.clockMu.Lock()
	defer c.clockMu.Unlock()

	t := c.clock()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
