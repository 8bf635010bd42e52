// Package spoolfile reads spooler state from a YAML document that an
// external agent keeps up to date. The file is re-read on every printer
// enumeration.
package spoolfile

import (
	"bytes"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/source"
	"gopkg.in/yaml.v3"
)

const (
	ErrReadFile  = errors.ErrorCode("spoolfile_read_failed")
	ErrParseFile = errors.ErrorCode("spoolfile_parse_failed")
)

// paperUser is the device code for a user-defined paper size.
const paperUser = 256

type document struct {
	Printers []printerDoc `yaml:"printers"`
}

type printerDoc struct {
	Name    string   `yaml:"name"`
	Offline bool     `yaml:"offline"`
	Jobs    []jobDoc `yaml:"jobs"`
}

type jobDoc struct {
	ID           string   `yaml:"id"`
	Status       []string `yaml:"status"`
	TotalPages   int      `yaml:"total_pages"`
	PagesPrinted int      `yaml:"pages_printed"`
	SizeBytes    int64    `yaml:"size_bytes"`
	User         string   `yaml:"user"`
	Color        string   `yaml:"color"`
	Duplex       string   `yaml:"duplex"`
	Paper        string   `yaml:"paper"`
}

type printer struct {
	offline bool
	jobs    []source.Job
	// err is the conversion failure of the printer's job list, reported by
	// ListJobs so that other printers stay readable.
	err error
}

type handle struct {
	name   string
	jobs   []source.Job
	err    error
	closed bool
}

func (h *handle) PrinterName() string { return h.name }

// Source implements source.Source over a YAML file.
type Source struct {
	path string

	mu       sync.Mutex
	printers map[string]printer
}

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) ListPrinters(ctx context.Context) ([]source.Printer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	printers := make(map[string]printer, len(doc.Printers))
	out := make([]source.Printer, 0, len(doc.Printers))
	for _, p := range doc.Printers {
		// Unnamed entries cannot be opened or keyed.
		if p.Name == "" {
			continue
		}
		jobs, err := convertJobs(p.Jobs)
		if err != nil {
			err = errors.New().Wrap(ErrParseFile, err).WithMessage("Invalid job on printer " + p.Name)
		}
		printers[p.Name] = printer{offline: p.Offline, jobs: jobs, err: err}
		out = append(out, source.Printer{Name: p.Name})
	}

	s.mu.Lock()
	s.printers = printers
	s.mu.Unlock()

	return out, nil
}

func (s *Source) load() (*document, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errFactory.Wrap(ErrReadFile, err)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errFactory.Wrap(ErrParseFile, err)
	}

	return &doc, nil
}

// OpenPrinter returns a handle holding the printer's jobs as of the last
// ListPrinters call.
func (s *Source) OpenPrinter(_ context.Context, name string) (source.Handle, error) {
	errFactory := errors.New()

	s.mu.Lock()
	p, ok := s.printers[name]
	s.mu.Unlock()

	if !ok {
		return nil, errFactory.WithData(source.ErrPrinterName, name)
	}
	if p.offline {
		return nil, errFactory.WithMessage(source.ErrOpenPrinter, "printer is offline")
	}

	return &handle{name: name, jobs: p.jobs, err: p.err}, nil
}

func (s *Source) ListJobs(ctx context.Context, h source.Handle, maxCount int) ([]source.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh, ok := h.(*handle)
	if !ok || sh.closed {
		return nil, errors.New().New(source.ErrInvalidHandle)
	}
	if sh.err != nil {
		return nil, errors.New().Wrap(source.ErrListJobs, sh.err)
	}

	jobs := sh.jobs
	if maxCount > 0 && len(jobs) > maxCount {
		jobs = jobs[:maxCount]
	}
	return append([]source.Job(nil), jobs...), nil
}

func (s *Source) ClosePrinter(h source.Handle) error {
	sh, ok := h.(*handle)
	if !ok || sh.closed {
		return errors.New().New(source.ErrInvalidHandle)
	}
	sh.closed = true
	return nil
}

func convertJobs(docs []jobDoc) ([]source.Job, error) {
	errFactory := errors.New()

	jobs := make([]source.Job, 0, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			return nil, errFactory.WithMessage(ErrParseFile, "job without id")
		}

		var flags source.StatusFlag
		for _, name := range d.Status {
			f, ok := source.ParseStatusFlag(name)
			if !ok {
				return nil, errFactory.WithData(ErrParseFile, "unknown status "+strconv.Quote(name))
			}
			flags |= f
		}

		settings, err := convertSettings(d)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, source.Job{
			ID:           d.ID,
			Status:       flags,
			TotalPages:   d.TotalPages,
			PagesPrinted: d.PagesPrinted,
			SizeBytes:    d.SizeBytes,
			UserAccount:  d.User,
			Settings:     settings,
		})
	}
	return jobs, nil
}

func convertSettings(d jobDoc) (*source.DeviceSettings, error) {
	errFactory := errors.New()

	var s source.DeviceSettings

	switch strings.ToLower(d.Color) {
	case "":
	case "color", "colour":
		s.Fields |= source.FieldColor
		s.Color = source.ColorColor
	case "monochrome", "mono", "grayscale":
		s.Fields |= source.FieldColor
		s.Color = source.ColorMonochrome
	default:
		return nil, errFactory.WithData(ErrParseFile, "unknown color mode "+strconv.Quote(d.Color))
	}

	switch strings.ToLower(d.Duplex) {
	case "":
	case "simplex", "one-sided":
		s.Fields |= source.FieldDuplex
		s.Duplex = source.DuplexSimplex
	case "vertical", "long-edge":
		s.Fields |= source.FieldDuplex
		s.Duplex = source.DuplexVertical
	case "horizontal", "short-edge":
		s.Fields |= source.FieldDuplex
		s.Duplex = source.DuplexHorizontal
	default:
		return nil, errFactory.WithData(ErrParseFile, "unknown duplex mode "+strconv.Quote(d.Duplex))
	}

	if d.Paper != "" {
		s.Fields |= source.FieldPaperSize
		s.PaperSize = paperCode(d.Paper)
	}

	if s.Fields == 0 {
		return nil, nil
	}
	return &s, nil
}

var paperCodes = map[string]int{
	"letter": source.PaperLetter,
	"legal":  source.PaperLegal,
	"a3":     source.PaperA3,
	"a4":     source.PaperA4,
	"a5":     source.PaperA5,
}

// paperCode accepts a paper name or a numeric device code. Anything else is
// a user-defined size.
func paperCode(v string) int {
	v = strings.ToLower(strings.TrimSpace(v))
	if code, ok := paperCodes[v]; ok {
		return code
	}
	if code, err := strconv.Atoi(v); err == nil {
		return code
	}
	return paperUser
}
