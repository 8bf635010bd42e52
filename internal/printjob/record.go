// Package printjob holds the job record produced by the collector and the
// rules that turn raw spooler jobs into records.
package printjob

import "time"

// TimeFormat renders ObservedAt as 2006-01-02T15:04:05.000+00:00.
const TimeFormat = "2006-01-02T15:04:05.000-07:00"

// UnknownUser is recorded when the spooler does not report a submitter.
const UnknownUser = "Unknown"

// Record is one observed print job. PrinterName and JobID form its key.
type Record struct {
	PrinterName       string
	JobID             string
	ObservedAt        time.Time
	Status            Status
	Pages             int
	DocumentSizeBytes int64
	ColorMode         ColorMode
	DuplexMode        DuplexMode
	PaperSize         PaperSize
	UserAccount       string
}

// Key identifies a job across sweeps.
type Key struct {
	PrinterName string
	JobID       string
}

func (r Record) Key() Key {
	return Key{PrinterName: r.PrinterName, JobID: r.JobID}
}

// FormatTime renders t in UTC with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Timestamp returns ObservedAt as rendered in exports.
func (r Record) Timestamp() string {
	return FormatTime(r.ObservedAt)
}
