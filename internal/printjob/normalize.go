package printjob

import (
	"time"

	"codeberg.org/mutker/printwatch/internal/source"
)

// statusPrecedence is walked in order; the first flag present decides.
var statusPrecedence = []struct {
	flag   source.StatusFlag
	status Status
}{
	{source.StatusPaused, StatusPaused},
	{source.StatusError, StatusError},
	{source.StatusDeleting, StatusDeleting},
	{source.StatusSpooling, StatusSpooling},
	{source.StatusPrinting, StatusPrinting},
	{source.StatusOffline, StatusOffline},
	{source.StatusPaperOut, StatusPaperOut},
	{source.StatusDeleted, StatusDeleted},
	{source.StatusBlocked, StatusBlocked},
	{source.StatusUserIntervention, StatusUserInterventionRequired},
}

// Normalize builds the record for job as seen on printer at observedAt.
func Normalize(printer string, job source.Job, observedAt time.Time) Record {
	user := job.UserAccount
	if user == "" {
		user = UnknownUser
	}

	size := job.SizeBytes
	if size < 0 {
		size = 0
	}

	return Record{
		PrinterName:       printer,
		JobID:             job.ID,
		ObservedAt:        observedAt,
		Status:            StatusFromFlags(job.Status),
		Pages:             pages(job),
		DocumentSizeBytes: size,
		ColorMode:         ColorFromSettings(job.Settings),
		DuplexMode:        DuplexFromSettings(job.Settings),
		PaperSize:         PaperFromSettings(job.Settings),
		UserAccount:       user,
	}
}

// StatusFromFlags maps a spooler flag set to a single status. An empty set
// is Queued.
func StatusFromFlags(flags source.StatusFlag) Status {
	for _, p := range statusPrecedence {
		if flags.Has(p.flag) {
			return p.status
		}
	}
	return StatusQueued
}

func pages(job source.Job) int {
	n := job.TotalPages
	if n <= 0 {
		n = job.PagesPrinted
	}
	if n < 0 {
		return 0
	}
	return n
}

func ColorFromSettings(s *source.DeviceSettings) ColorMode {
	if !s.Has(source.FieldColor) {
		return ColorUnknown
	}
	if s.Color == source.ColorColor {
		return ColorColor
	}
	return ColorMonochrome
}

func DuplexFromSettings(s *source.DeviceSettings) DuplexMode {
	if !s.Has(source.FieldDuplex) {
		return DuplexUnknown
	}
	switch s.Duplex {
	case source.DuplexSimplex:
		return DuplexSimplex
	case source.DuplexVertical:
		return DuplexVertical
	case source.DuplexHorizontal:
		return DuplexHorizontal
	default:
		return DuplexUnknown
	}
}

func PaperFromSettings(s *source.DeviceSettings) PaperSize {
	if !s.Has(source.FieldPaperSize) {
		return PaperUnknown
	}
	switch s.PaperSize {
	case source.PaperLetter:
		return PaperLetter
	case source.PaperLegal:
		return PaperLegal
	case source.PaperA4:
		return PaperA4
	case source.PaperA3:
		return PaperA3
	case source.PaperA5:
		return PaperA5
	default:
		return PaperCustom
	}
}
