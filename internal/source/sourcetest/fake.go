// Package sourcetest provides an in-memory source.Source for tests.
package sourcetest

import (
	"context"
	"sync"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/source"
)

// Fake serves printers and jobs from memory and counts handle use so tests
// can check that every opened handle is closed.
type Fake struct {
	mu       sync.Mutex
	printers []string
	jobs     map[string][]source.Job

	ListErr error
	OpenErr map[string]error
	JobsErr map[string]error

	// OnListJobs runs before ListJobs returns, outside the lock.
	OnListJobs func(printer string)

	listCalls int
	opened    int
	closed    int
	open      map[*handle]struct{}
}

type handle struct {
	name string
}

func (h *handle) PrinterName() string { return h.name }

func New() *Fake {
	return &Fake{
		jobs:    make(map[string][]source.Job),
		OpenErr: make(map[string]error),
		JobsErr: make(map[string]error),
		open:    make(map[*handle]struct{}),
	}
}

// AddPrinter registers a printer with the given jobs.
func (f *Fake) AddPrinter(name string, jobs ...source.Job) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.printers = append(f.printers, name)
	f.jobs[name] = jobs
	return f
}

// SetJobs replaces the jobs queued on printer.
func (f *Fake) SetJobs(name string, jobs ...source.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.jobs[name] = jobs
}

func (f *Fake) ListPrinters(ctx context.Context) ([]source.Printer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}

	out := make([]source.Printer, 0, len(f.printers))
	for _, name := range f.printers {
		out = append(out, source.Printer{Name: name})
	}
	return out, nil
}

func (f *Fake) OpenPrinter(_ context.Context, name string) (source.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.OpenErr[name]; err != nil {
		return nil, err
	}

	h := &handle{name: name}
	f.open[h] = struct{}{}
	f.opened++
	return h, nil
}

func (f *Fake) ListJobs(_ context.Context, h source.Handle, maxCount int) ([]source.Job, error) {
	name := h.PrinterName()

	f.mu.Lock()
	err := f.JobsErr[name]
	jobs := append([]source.Job(nil), f.jobs[name]...)
	hook := f.OnListJobs
	f.mu.Unlock()

	if hook != nil {
		hook(name)
	}
	if err != nil {
		return nil, err
	}
	if maxCount > 0 && len(jobs) > maxCount {
		jobs = jobs[:maxCount]
	}
	return jobs, nil
}

func (f *Fake) ClosePrinter(h source.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, ok := h.(*handle)
	if !ok {
		return errors.New().New(source.ErrInvalidHandle)
	}
	if _, ok := f.open[fh]; !ok {
		return errors.New().WithData(source.ErrInvalidHandle, fh.name)
	}
	delete(f.open, fh)
	f.closed++
	return nil
}

// Stats reports ListPrinters calls and handles opened, closed and still open.
func (f *Fake) Stats() (listCalls, opened, closed, open int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.listCalls, f.opened, f.closed, len(f.open)
}
