package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"github.com/sozercan/agenicai/internal/analyzer"
	"github.com/sozercan/agenicai/internal/config"
	"github.com/sozercan/agenicai/internal/metrics"
)

const requestTimeout = 30 * time.Second

type Server struct {
	cfg      config.ServerConfig
	server   *http.Server
	router   *chi.Mux
	analyzer *analyzer.Analyzer
	metrics  *metrics.Metrics
	clock    clockwork.Clock
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClock sets the clock used to date exported artifacts.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

func New(cfg config.Config, analyzer *analyzer.Analyzer, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg.Server,
		router:   chi.NewRouter(),
		analyzer: analyzer,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api/v1", func(r chi.Router) {
		// event streams stay open for the lifetime of a run
		r.Get("/runs/{id}/events", s.handleRunEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/health", s.handleHealth)
			r.Get("/agents", s.handleAgents)
			r.Get("/samples", s.handleSamples)
			r.Get("/formats", s.handleFormats)
			r.Post("/classify", s.handleClassify)
			r.Post("/analyze", s.handleAnalyze)

			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/{id}", s.handleGetRun)
			r.Delete("/runs/{id}", s.handleCancelRun)
			r.Get("/runs/{id}/export/{format}", s.handleRunExport)
			r.Get("/export/{format}", s.handleExport)
		})
	})

	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(rw, r)

		slog.Info("HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	// Create a channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "address", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	// Create channel for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info("Starting shutdown", "signal", sig)

	case <-ctx.Done():
		slog.Info("Starting shutdown", "reason", ctx.Err())
	}

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// Custom response writer to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
