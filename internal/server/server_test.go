package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/ledger"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printjob"
	"codeberg.org/mutker/printwatch/internal/server"
	"codeberg.org/mutker/printwatch/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStats service.Stats

func (s staticStats) Stats() service.Stats { return service.Stats(s) }

func newServer(t *testing.T, cfg server.Config) *server.Server {
	t.Helper()
	log, err := logger.New(io.Discard, "debug")
	require.NoError(t, err)

	stats := staticStats{
		Statistics: ledger.Statistics{
			Count:                  2,
			CountByStatus:          map[printjob.Status]int{printjob.StatusPaperOut: 2},
			TotalPages:             4,
			TotalDocumentSizeBytes: 1024,
		},
		Active: true,
		State:  service.StateActive,
	}
	return server.New(cfg, stats, log)
}

func TestHealth(t *testing.T) {
	srv := newServer(t, server.Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestStats(t *testing.T) {
	srv := newServer(t, server.Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body server.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, server.StatsResponse{
		TotalJobs:              2,
		JobsByStatus:           map[string]int{"Paper Out": 2},
		TotalPages:             4,
		TotalDocumentSizeBytes: 1024,
		AveragePages:           2,
		Monitoring:             "ACTIVE",
		State:                  "active",
	}, body)
}

func TestMetrics(t *testing.T) {
	srv := newServer(t, server.Config{})

	// Generate at least one counted request first.
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "printwatch_http_requests_total")
}

func TestRateLimit(t *testing.T) {
	srv := newServer(t, server.Config{RateLimit: 0.001, RateBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestUnknownRoute(t *testing.T) {
	srv := newServer(t, server.Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunServesUntilCanceled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := newServer(t, server.Config{Listen: addr})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := newServer(t, server.Config{Listen: ln.Addr().String()})
	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, server.ErrListen))
}
