// Package export writes ledger snapshots as CSV files.
package export

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printjob"
)

const (
	defaultFilePerm = 0o644

	// DefaultExportName is used when an export is requested without a name.
	DefaultExportName = "print_jobs_export.csv"

	fileTimeFormat = "2006-01-02T15-04-05"
)

// Snapshotter is satisfied by *ledger.Ledger.
type Snapshotter interface {
	Snapshot() []printjob.Record
}

type Exporter struct {
	src Snapshotter
	log logger.Logger
}

func New(src Snapshotter, log logger.Logger) *Exporter {
	return &Exporter{src: src, log: log}
}

// FileName returns "<prefix>_<YYYY-MM-DDTHH-MM-SS>.csv" for t in UTC.
func FileName(prefix string, t time.Time) string {
	return prefix + "_" + t.UTC().Format(fileTimeFormat) + ".csv"
}

// Export writes a snapshot of the ledger to destination. The file is
// written next to destination under a temporary name and renamed into place,
// so a failed export leaves any previous file untouched.
func (e *Exporter) Export(ctx context.Context, destination string) error {
	errFactory := errors.New()

	if destination == "" {
		return errFactory.New(ErrInvalidPath)
	}
	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(errors.ErrTimeout, err)
	}

	records := e.src.Snapshot()

	tmp, err := os.CreateTemp(filepath.Dir(destination), "."+filepath.Base(destination)+".*.tmp")
	if err != nil {
		exportsTotal.WithLabelValues("open_failed").Inc()
		e.log.Error().Err(err).Msgf("Could not open file for writing: %s", destination)
		return errFactory.Wrap(ErrOpenFile, err)
	}

	if err := e.write(tmp, records, destination); err != nil {
		os.Remove(tmp.Name())
		exportsTotal.WithLabelValues("write_failed").Inc()
		e.log.Error().Msgf("Exception during CSV export: %v", err)
		return errFactory.Wrap(ErrWriteFile, err)
	}

	exportsTotal.WithLabelValues("success").Inc()
	exportRecords.Set(float64(len(records)))
	e.log.Info().Msgf("Data exported to: %s (%d records)", destination, len(records))

	return nil
}

func (e *Exporter) write(tmp *os.File, records []printjob.Record, destination string) error {
	if err := WriteCSV(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), defaultFilePerm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destination)
}
