// Package shell implements the line-oriented command surface read from
// standard input.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/service"
)

// Service is the part of service.CollectorService the shell drives.
type Service interface {
	Start() error
	Stop() error
	Save(ctx context.Context) (string, error)
	Export(ctx context.Context, path string) (string, error)
	Stats() service.Stats
}

type Shell struct {
	svc Service
	in  io.Reader
	out io.Writer
	log logger.Logger
}

func New(svc Service, in io.Reader, out io.Writer, log logger.Logger) *Shell {
	return &Shell{svc: svc, in: in, out: out, log: log}
}

// Run reads commands until quit, end of input or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	// The reader may stay blocked on input after Run returns; it exits with
	// the process.
	go func() {
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	fmt.Fprintln(s.out, "Print Job Monitoring System")
	fmt.Fprintln(s.out, "Type 'help' for available commands or 'quit' to exit.")
	fmt.Fprintln(s.out)

	for {
		fmt.Fprint(s.out, "> ")

		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case err := <-readErr:
			fmt.Fprintln(s.out)
			if err != nil {
				s.log.Error().Err(err).Msg("Failed to read command input")
			}
			return err
		case line := <-lines:
			if quit := s.Execute(ctx, line); quit {
				fmt.Fprintln(s.out, "Exiting...")
				return nil
			}
		}
	}
}

// Execute runs one command line and reports whether it asked to quit.
// Command names are case-insensitive; export file names keep their case.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "start":
		// Failures are logged by the service.
		_ = s.svc.Start()
	case "stop":
		_ = s.svc.Stop()
	case "save":
		_, _ = s.svc.Save(ctx)
	case "export":
		path := strings.TrimSpace(strings.TrimSpace(line)[len(fields[0]):])
		_, _ = s.svc.Export(ctx, path)
	case "stats":
		s.printStats(s.svc.Stats())
	case "help":
		s.printHelp()
	case "quit", "exit":
		return true
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for available commands.")
	}
	return false
}

func (s *Shell) printStats(st service.Stats) {
	w := s.out
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Print Job Statistics ===")
	fmt.Fprintf(w, "Total print jobs recorded: %d\n", st.Count)

	if st.Count > 0 {
		names := make([]string, 0, len(st.CountByStatus))
		counts := make(map[string]int, len(st.CountByStatus))
		for status, n := range st.CountByStatus {
			names = append(names, status.String())
			counts[status.String()] = n
		}
		sort.Strings(names)

		fmt.Fprintln(w, "Jobs by status:")
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", name, counts[name])
		}
		fmt.Fprintf(w, "Total pages printed: %d\n", st.TotalPages)
		fmt.Fprintf(w, "Total document size: %d bytes\n", st.TotalDocumentSizeBytes)
		fmt.Fprintf(w, "Average pages per job: %s\n", strconv.FormatFloat(st.AveragePages(), 'g', 6, 64))
	}

	status := "STOPPED"
	if st.Active {
		status = "ACTIVE"
	}
	fmt.Fprintf(w, "Monitoring status: %s\n", status)
	fmt.Fprintln(w, "============================")
	fmt.Fprintln(w)
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, `
=== Print Job Monitor Help ===
Commands:
  start         - Start monitoring print jobs
  stop          - Stop monitoring print jobs
  save          - Force save current data to CSV
  export [file] - Export to specified CSV file
  stats         - Show current statistics
  help          - Show this help message
  quit/exit     - Quit the application
==============================

`)
}
