package shell_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/printwatch/internal/ledger"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printjob"
	"codeberg.org/mutker/printwatch/internal/service"
	"codeberg.org/mutker/printwatch/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	calls []string
	stats service.Stats
}

func (f *fakeService) Start() error { f.calls = append(f.calls, "start"); return nil }
func (f *fakeService) Stop() error  { f.calls = append(f.calls, "stop"); return nil }

func (f *fakeService) Save(context.Context) (string, error) {
	f.calls = append(f.calls, "save")
	return "print_jobs_x.csv", nil
}

func (f *fakeService) Export(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, "export:"+path)
	return path, nil
}

func (f *fakeService) Stats() service.Stats { return f.stats }

func newShell(t *testing.T, svc shell.Service, input string) (*shell.Shell, *bytes.Buffer) {
	t.Helper()
	log, err := logger.New(io.Discard, "info")
	require.NoError(t, err)
	out := &bytes.Buffer{}
	return shell.New(svc, strings.NewReader(input), out, log), out
}

func TestRunDispatchesCommands(t *testing.T) {
	svc := &fakeService{}
	sh, out := newShell(t, svc, "START\n\n  stop  \nsave\nexport\nexport Reports/Q1.csv\nbogus\nquit\nstart\n")

	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, []string{"start", "stop", "save", "export:", "export:Reports/Q1.csv"}, svc.calls)
	assert.Contains(t, out.String(), "Unknown command. Type 'help' for available commands.")
	assert.Contains(t, out.String(), "Exiting...")
}

func TestRunEndsAtEOF(t *testing.T) {
	svc := &fakeService{}
	sh, _ := newShell(t, svc, "start")

	require.NoError(t, sh.Run(context.Background()))
	assert.Equal(t, []string{"start"}, svc.calls)
}

func TestRunStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	log, err := logger.New(io.Discard, "info")
	require.NoError(t, err)
	sh := shell.New(&fakeService{}, pr, io.Discard, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("shell did not stop on cancel")
	}
}

func TestExitCommand(t *testing.T) {
	sh, _ := newShell(t, &fakeService{}, "")
	assert.True(t, sh.Execute(context.Background(), "Exit"))
	assert.True(t, sh.Execute(context.Background(), "quit"))
	assert.False(t, sh.Execute(context.Background(), "   "))
}

func TestStatsReport(t *testing.T) {
	svc := &fakeService{stats: service.Stats{
		Statistics: ledger.Statistics{
			Count: 2,
			CountByStatus: map[printjob.Status]int{
				printjob.StatusQueued:   1,
				printjob.StatusPrinting: 1,
			},
			TotalPages:             5,
			TotalDocumentSizeBytes: 20580,
		},
		Active: true,
	}}
	sh, out := newShell(t, svc, "")

	sh.Execute(context.Background(), "stats")

	want := `
=== Print Job Statistics ===
Total print jobs recorded: 2
Jobs by status:
  Printing: 1
  Queued: 1
Total pages printed: 5
Total document size: 20580 bytes
Average pages per job: 2.5
Monitoring status: ACTIVE
============================

`
	assert.Equal(t, want, out.String())
}

func TestStatsReportEmpty(t *testing.T) {
	sh, out := newShell(t, &fakeService{}, "")

	sh.Execute(context.Background(), "stats")

	assert.Contains(t, out.String(), "Total print jobs recorded: 0\n")
	assert.NotContains(t, out.String(), "Average pages per job")
	assert.Contains(t, out.String(), "Monitoring status: STOPPED\n")
}

func TestHelp(t *testing.T) {
	sh, out := newShell(t, &fakeService{}, "")
	sh.Execute(context.Background(), "HELP")
	assert.Contains(t, out.String(), "export [file] - Export to specified CSV file")
}
