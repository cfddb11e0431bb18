// Package web publishes stored map entries over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/adaptermap/core/logger"
	"github.com/m3rciful/adaptermap/internal/records"
)

var log = logger.Named("http")

// Config controls the publisher.
type Config struct {
	Enabled   bool   `yaml:"enabled" envconfig:"HTTP_ENABLED"`
	Listen    string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	StaticDir string `yaml:"static_dir" envconfig:"HTTP_STATIC_DIR"`
}

// DefaultListen is used when Config.Listen is empty.
const DefaultListen = ":8080"

// Lister returns every stored entry.
type Lister interface {
	List(ctx context.Context) ([]records.Record, error)
}

// Server serves /adapters.json, optional static files and /metrics.
type Server struct {
	cfg    Config
	lister Lister
	mux    *http.ServeMux
	server *http.Server
}

// NewServer builds the routes. gatherer may be nil to leave /metrics out.
func NewServer(cfg Config, lister Lister, gatherer prometheus.Gatherer) *Server {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	s := &Server{cfg: cfg, lister: lister}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /adapters.json", s.handleList)
	mux.HandleFunc("GET /pcbs.json", s.handleList)
	mux.HandleFunc("GET /healthz", handleHealthz)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}
	s.mux = mux
	return s
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Run listens until ctx is cancelled, then shuts down within five seconds.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server.start",
			slog.String("status", "ok"),
			slog.String("addr", s.cfg.Listen),
			slog.Bool("static", s.cfg.StaticDir != ""),
		)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "server.stop",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	log.Info(ctx, "server.stop", slog.String("status", "ok"))
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.lister.List(r.Context())
	if err != nil {
		log.Error(r.Context(), "records.list",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		http.Error(w, "failed to load adapters", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []records.Record{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		log.Warn(r.Context(), "response.write",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("code", rec.status),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}
