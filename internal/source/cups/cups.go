// Package cups reads printers and queued jobs from a CUPS scheduler over IPP.
package cups

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/source"
	"github.com/phin1x/go-ipp"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 631

	printerStateStopped = 5

	// paperUser is the device code for a media size without a fixed code.
	paperUser = 256
)

// IPP job-state values.
const (
	jobPending    = 3
	jobHeld       = 4
	jobProcessing = 5
	jobStopped    = 6
	jobCanceled   = 7
	jobAborted    = 8
	jobCompleted  = 9
)

var printerAttributes = []string{"printer-name", "printer-state"}

var jobAttributes = []string{
	"job-id",
	"job-state",
	"job-state-reasons",
	"job-k-octets",
	"job-impressions",
	"job-impressions-completed",
	"job-originating-user-name",
	"print-color-mode",
	"sides",
	"media",
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	TLS      bool
}

type handle struct {
	name    string
	stopped bool
	closed  bool
}

func (h *handle) PrinterName() string { return h.name }

// Source implements source.Source against a CUPS server.
type Source struct {
	client client

	mu       sync.Mutex
	printers map[string]bool // name to stopped
}

func New(cfg Config) *Source {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	return newSource(newIPPClient(cfg))
}

func newSource(c client) *Source {
	return &Source{client: c, printers: make(map[string]bool)}
}

func (s *Source) ListPrinters(ctx context.Context) ([]source.Printer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attrs, err := s.client.printers(printerAttributes)
	if err != nil {
		return nil, errors.New().Wrap(source.ErrListPrinters, err)
	}

	names := make([]string, 0, len(attrs))
	printers := make(map[string]bool, len(attrs))
	for name, a := range attrs {
		if n := stringAttr(a, "printer-name"); n != "" {
			name = n
		}
		state, _ := intAttr(a, "printer-state")
		printers[name] = state == printerStateStopped
		names = append(names, name)
	}
	sort.Strings(names)

	s.mu.Lock()
	s.printers = printers
	s.mu.Unlock()

	out := make([]source.Printer, len(names))
	for i, n := range names {
		out[i] = source.Printer{Name: n}
	}
	return out, nil
}

// OpenPrinter checks name against the last printer list. IPP is stateless so
// the handle holds no connection.
func (s *Source) OpenPrinter(_ context.Context, name string) (source.Handle, error) {
	s.mu.Lock()
	stopped, ok := s.printers[name]
	s.mu.Unlock()

	if !ok {
		return nil, errors.New().WithData(source.ErrPrinterName, name)
	}
	return &handle{name: name, stopped: stopped}, nil
}

func (s *Source) ListJobs(ctx context.Context, h source.Handle, maxCount int) ([]source.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch, ok := h.(*handle)
	if !ok || ch.closed {
		return nil, errors.New().New(source.ErrInvalidHandle)
	}

	attrs, err := s.client.jobs(ch.name, maxCount, jobAttributes)
	if err != nil {
		return nil, errors.New().Wrap(source.ErrListJobs, err)
	}

	ids := make([]int, 0, len(attrs))
	for id := range attrs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if maxCount > 0 && len(ids) > maxCount {
		ids = ids[:maxCount]
	}

	jobs := make([]source.Job, 0, len(ids))
	for _, id := range ids {
		job := convertJob(id, attrs[id])
		if ch.stopped {
			job.Status |= source.StatusOffline
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Source) ClosePrinter(h source.Handle) error {
	ch, ok := h.(*handle)
	if !ok || ch.closed {
		return errors.New().New(source.ErrInvalidHandle)
	}
	ch.closed = true
	return nil
}

func convertJob(id int, a ipp.Attributes) source.Job {
	if v, ok := intAttr(a, "job-id"); ok {
		id = v
	}

	state, _ := intAttr(a, "job-state")
	flags := stateFlags(state)
	for _, reason := range stringsAttr(a, "job-state-reasons") {
		flags |= reasonFlags[reason]
	}

	kOctets, _ := intAttr(a, "job-k-octets")
	total, _ := intAttr(a, "job-impressions")
	done, _ := intAttr(a, "job-impressions-completed")

	return source.Job{
		ID:           strconv.Itoa(id),
		Status:       flags,
		TotalPages:   total,
		PagesPrinted: done,
		SizeBytes:    int64(kOctets) * 1024,
		UserAccount:  stringAttr(a, "job-originating-user-name"),
		Settings:     convertSettings(a),
	}
}

func stateFlags(state int) source.StatusFlag {
	switch state {
	case jobHeld:
		return source.StatusPaused
	case jobProcessing:
		return source.StatusPrinting
	case jobStopped:
		return source.StatusBlocked
	case jobCanceled:
		return source.StatusDeleted
	case jobAborted:
		return source.StatusError
	case jobCompleted:
		return source.StatusPrinted | source.StatusComplete
	default: // pending
		return 0
	}
}

var reasonFlags = map[string]source.StatusFlag{
	"job-incoming":                 source.StatusSpooling,
	"job-data-insufficient":        source.StatusSpooling,
	"job-spooling":                 source.StatusSpooling,
	"job-printing":                 source.StatusPrinting,
	"job-hold-until-specified":     source.StatusPaused,
	"job-suspended":                source.StatusPaused,
	"printer-stopped":              source.StatusOffline,
	"printer-stopped-partly":       source.StatusBlocked,
	"resources-are-not-ready":      source.StatusBlocked,
	"media-empty":                  source.StatusPaperOut,
	"media-needed":                 source.StatusPaperOut,
	"processing-to-stop-point":     source.StatusDeleting,
	"job-canceled-by-user":         source.StatusDeleted,
	"job-canceled-by-operator":     source.StatusDeleted,
	"aborted-by-system":            source.StatusError,
	"document-access-error":        source.StatusError,
	"document-format-error":        source.StatusError,
	"cups-held-for-authentication": source.StatusUserIntervention,
	"job-held-for-review":          source.StatusUserIntervention,
	"job-password-wait":            source.StatusUserIntervention,
	"job-restartable":              source.StatusRestart,
	"job-completed-successfully":   source.StatusComplete,
}

func convertSettings(a ipp.Attributes) *source.DeviceSettings {
	var s source.DeviceSettings

	switch stringAttr(a, "print-color-mode") {
	case "", "auto":
		// auto leaves the choice to the printer.
	case "color", "highlight":
		s.Fields |= source.FieldColor
		s.Color = source.ColorColor
	default: // monochrome, auto-monochrome, process-monochrome, bi-level
		s.Fields |= source.FieldColor
		s.Color = source.ColorMonochrome
	}

	switch stringAttr(a, "sides") {
	case "one-sided":
		s.Fields |= source.FieldDuplex
		s.Duplex = source.DuplexSimplex
	case "two-sided-long-edge":
		s.Fields |= source.FieldDuplex
		s.Duplex = source.DuplexVertical
	case "two-sided-short-edge":
		s.Fields |= source.FieldDuplex
		s.Duplex = source.DuplexHorizontal
	}

	if media := stringAttr(a, "media"); media != "" {
		s.Fields |= source.FieldPaperSize
		s.PaperSize = mediaCode(media)
	}

	if s.Fields == 0 {
		return nil
	}
	return &s
}

// mediaCode maps PWG self-describing names and PPD names to device codes.
func mediaCode(media string) int {
	m := strings.ToLower(media)
	switch {
	case strings.HasPrefix(m, "na_letter_"), m == "letter":
		return source.PaperLetter
	case strings.HasPrefix(m, "na_legal_"), m == "legal":
		return source.PaperLegal
	case strings.HasPrefix(m, "iso_a3_"), m == "a3":
		return source.PaperA3
	case strings.HasPrefix(m, "iso_a4_"), m == "a4":
		return source.PaperA4
	case strings.HasPrefix(m, "iso_a5_"), m == "a5":
		return source.PaperA5
	default:
		return paperUser
	}
}

func intAttr(a ipp.Attributes, name string) (int, bool) {
	values := a[name]
	if len(values) == 0 {
		return 0, false
	}
	switch v := values[0].Value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

func stringAttr(a ipp.Attributes, name string) string {
	values := a[name]
	if len(values) == 0 {
		return ""
	}
	if s, ok := values[0].Value.(string); ok {
		return s
	}
	return ""
}

func stringsAttr(a ipp.Attributes, name string) []string {
	var out []string
	for _, v := range a[name] {
		if s, ok := v.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
