// Package server exposes health, statistics and Prometheus metrics over a
// local HTTP listener.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultRateLimit = 10
	DefaultRateBurst = 20

	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Config struct {
	Listen    string
	RateLimit float64 // requests per second
	RateBurst int
}

// StatsProvider is satisfied by *service.CollectorService.
type StatsProvider interface {
	Stats() service.Stats
}

type Server struct {
	cfg     Config
	stats   StatsProvider
	log     logger.Logger
	limiter *rate.Limiter
	handler http.Handler
}

func New(cfg Config, stats StatsProvider, log logger.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}

	s := &Server{
		cfg:     cfg,
		stats:   stats,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimit)
	r.Use(s.countRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Handler returns the router, for mounting in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errFactory := errors.New()

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return errFactory.Wrap(ErrListen, err)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("Status server listening")

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return errFactory.Wrap(ErrListen, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(ErrShutdown, err)
	}
	s.log.Debug().Msg("Status server stopped")
	return nil
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			rateLimitRejects.Inc()
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.URL.Path, strconv.Itoa(status)).Inc()
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// StatsResponse is the /stats body.
type StatsResponse struct {
	TotalJobs              int            `json:"total_jobs"`
	JobsByStatus           map[string]int `json:"jobs_by_status"`
	TotalPages             int            `json:"total_pages"`
	TotalDocumentSizeBytes int64          `json:"total_document_size_bytes"`
	AveragePages           float64        `json:"average_pages"`
	Monitoring             string         `json:"monitoring"`
	State                  string         `json:"state"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	st := s.stats.Stats()

	resp := StatsResponse{
		TotalJobs:              st.Count,
		JobsByStatus:           make(map[string]int, len(st.CountByStatus)),
		TotalPages:             st.TotalPages,
		TotalDocumentSizeBytes: st.TotalDocumentSizeBytes,
		AveragePages:           st.AveragePages(),
		Monitoring:             "STOPPED",
		State:                  st.State.String(),
	}
	for status, n := range st.CountByStatus {
		resp.JobsByStatus[status.String()] = n
	}
	if st.Active {
		resp.Monitoring = "ACTIVE"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write stats response")
	}
}
