package main

import (
	"codeberg.org/mutker/printwatch/internal/collector"
	"codeberg.org/mutker/printwatch/internal/config"
	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/history"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/service"
	"codeberg.org/mutker/printwatch/internal/source"
	"codeberg.org/mutker/printwatch/internal/source/cups"
	"codeberg.org/mutker/printwatch/internal/source/spoolfile"
)

func newSource(cfg *config.Config) (source.Source, error) {
	switch cfg.Source {
	case config.SourceCUPS:
		return cups.New(cups.Config{
			Host:     cfg.CUPS.Host,
			Port:     cfg.CUPS.Port,
			User:     cfg.CUPS.User,
			Password: cfg.CUPS.Password,
			TLS:      cfg.CUPS.TLS,
		}), nil
	case config.SourceSpoolFile:
		return spoolfile.New(cfg.SpoolFile.Path), nil
	default:
		return nil, errors.New().WithData(errors.ErrInvalidSource, cfg.Source)
	}
}

func newService(cfg *config.Config, log logger.Logger) (*service.CollectorService, error) {
	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}

	recorder, err := history.NewService(history.Config{
		DBPath:       cfg.History.DBPath,
		BatchSize:    cfg.History.BatchSize,
		BatchTimeout: cfg.History.BatchTimeout,
		Enabled:      cfg.History.Enabled,
	}, log)
	if err != nil {
		return nil, err
	}

	svc, err := service.New(src, log, service.Config{
		Collector: collector.Config{
			Interval: cfg.Interval,
			Backoff:  cfg.Backoff,
			MaxJobs:  cfg.MaxJobs,
		},
		ExportDir:        cfg.ExportDir,
		ExportInterval:   cfg.ExportInterval,
		LedgerCapacity:   cfg.Ledger.Capacity,
		LedgerEvictBatch: cfg.Ledger.EvictBatch,
	}, service.WithRecorder(recorder))
	if err != nil {
		recorder.Close()
		return nil, err
	}

	log.Debug().
		Str("source", cfg.Source).
		Dur("interval", cfg.Interval).
		Dur("export_interval", cfg.ExportInterval).
		Bool("history", cfg.History.Enabled).
		Msg("Collection service configured")

	return svc, nil
}
