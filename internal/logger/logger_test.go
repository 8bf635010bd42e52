package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lineRe = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}\+00:00\] \[(DEBUG|INFO|WARN|ERROR)\] (.*)$`)

func TestInitWritesContractFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "printwatch.log")

	require.NoError(t, logger.Init(logger.Options{
		Level:  "info",
		File:   path,
		Stdout: &stdout,
		Stderr: &stderr,
	}))
	t.Cleanup(func() { _ = logger.Close() })

	logger.Info().Msg("Print job monitoring started.")
	logger.Warn().Msg("No printers found during monitoring cycle")
	logger.Error().Msg("Could not open printer: LaserA")
	logger.Debug().Msg("hidden at info level")

	out := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, out, 2)
	assert.Regexp(t, lineRe, out[0])
	assert.True(t, strings.HasSuffix(out[0], "[INFO] Print job monitoring started."))
	assert.True(t, strings.HasSuffix(out[1], "[WARN] No printers found during monitoring cycle"))

	errLines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	require.Len(t, errLines, 1)
	assert.True(t, strings.HasSuffix(errLines[0], "[ERROR] Could not open printer: LaserA"))

	require.NoError(t, logger.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fileLines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, fileLines, 3)
	for _, line := range fileLines {
		assert.Regexp(t, lineRe, line)
	}
}

func TestInitAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printwatch.log")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o600))

	var sink bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{File: path, Stdout: &sink, Stderr: &sink}))
	logger.Info().Msg("again")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "previous\n"))
	assert.Contains(t, string(data), "[INFO] again")
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := logger.Init(logger.Options{Level: "loud"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestNewInstanceLevels(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(&buf, "warning")
	require.NoError(t, err)

	log.Info().Msg("skipped")
	log.Warn().Msg("kept")
	log.ErrorWithCode(errors.New().New(errors.ErrTimeout)).Msg("coded")

	out := buf.String()
	assert.NotContains(t, out, "skipped")
	assert.Contains(t, out, "[WARN] kept")
	assert.Contains(t, out, "[ERROR] coded")
	assert.Contains(t, out, "error_code=operation_timeout")
}

func TestParseLevel(t *testing.T) {
	for _, level := range []string{"", "debug", "INFO", "warn", "warning", "error"} {
		_, err := logger.ParseLevel(level)
		assert.NoError(t, err, level)
	}
}
