package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/printwatch/internal/config"
	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/source/cups"
	"codeberg.org/mutker/printwatch/internal/source/spoolfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSource(t *testing.T) {
	src, err := newSource(&config.Config{Source: config.SourceCUPS, CUPS: config.CUPSConfig{Host: "localhost", Port: 631}})
	require.NoError(t, err)
	assert.IsType(t, &cups.Source{}, src)

	src, err = newSource(&config.Config{Source: config.SourceSpoolFile, SpoolFile: config.SpoolFileConfig{Path: "spool.yaml"}})
	require.NoError(t, err)
	assert.IsType(t, &spoolfile.Source{}, src)

	_, err = newSource(&config.Config{Source: "lpd"})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidSource))
}

func TestServiceFromSpoolFile(t *testing.T) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "spool.yaml")
	require.NoError(t, os.WriteFile(spool, []byte(`
printers:
  - name: LaserA
    jobs:
      - id: "42"
        status: [printing]
        total_pages: 3
`), 0o644))

	t.Setenv("PRINTWATCH_CONFIG", "")
	cfg, err := config.Load([]string{
		"--source", "spoolfile",
		"--spoolfile", spool,
		"--interval", "10ms",
		"--export-dir", dir,
		"--log-file", "",
	})
	require.NoError(t, err)

	log, err := logger.New(&bytes.Buffer{}, "debug")
	require.NoError(t, err)

	svc, err := newService(cfg, log)
	require.NoError(t, err)
	defer svc.Close(context.Background())

	require.NoError(t, svc.Start())
	require.Eventually(t, func() bool { return svc.Stats().Count == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, svc.Stop())

	path, err := svc.Export(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "print_jobs_export.csv"), path)
	assert.FileExists(t, path)
}
