// Package source defines the printer job source the collector polls: a
// spooler that can list printers and the jobs queued on each of them.
package source

import "context"

// Source abstracts a print spooler. Implementations return already-parsed
// printer and job records.
type Source interface {
	// ListPrinters returns the printers currently known to the spooler.
	ListPrinters(ctx context.Context) ([]Printer, error)

	// OpenPrinter acquires a handle for querying one printer's jobs. The
	// caller owns the handle and must release it with ClosePrinter.
	OpenPrinter(ctx context.Context, name string) (Handle, error)

	// ListJobs returns up to maxCount pending or recent jobs.
	ListJobs(ctx context.Context, h Handle, maxCount int) ([]Job, error)

	// ClosePrinter releases a handle obtained from OpenPrinter.
	ClosePrinter(h Handle) error
}

// Handle identifies an open printer.
type Handle interface {
	PrinterName() string
}

type Printer struct {
	Name string
}

// Job is one job as reported by the spooler.
type Job struct {
	ID           string
	Status       StatusFlag
	TotalPages   int
	PagesPrinted int
	SizeBytes    int64
	UserAccount  string
	// Settings is nil when the spooler has no device mode for the job.
	Settings *DeviceSettings
}
