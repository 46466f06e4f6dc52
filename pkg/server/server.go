// Package server exposes the metadata pipeline over HTTP.
//
// # Routes
//
//	POST   /v1/documents                      resolve a BPMN body and store the result
//	GET    /v1/documents/{id}                 fetch a stored record
//	GET    /v1/documents/{id}/nodes/{nodeID}  fetch one node's metadata
//	GET    /v1/documents/{id}/diagram         render a stored record (?format=dot|svg)
//	DELETE /v1/documents/{id}                 remove a stored record
//	GET    /healthz                           liveness probe
//	GET    /metrics                           Prometheus metrics (when configured)
//
// Errors are JSON objects {"code": ..., "message": ...}. Integrity errors in
// the submitted document map to 422, missing records and nodes to 404 and
// invalid requests to 400.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/procmeta/pkg/pipeline"
	"github.com/matzehuels/procmeta/pkg/store"
)

const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Options configures a [Server].
type Options struct {
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler

	// Workers bounds resolve concurrency per request; 0 uses the pipeline default.
	Workers int

	// VendorNamespace is the default vendor extension namespace.
	VendorNamespace string
}

// Server handles HTTP requests against a pipeline runner and a record store.
type Server struct {
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
	opts   Options
	router chi.Router
}

// New creates a server. The runner and store stay owned by the caller.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner: runner,
		store:  st,
		logger: logger,
		opts:   opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)

	// Routes are flat so the pattern is resolved before instrument runs.
	r.Group(func(r chi.Router) {
		r.Use(s.instrument)

		r.Get("/healthz", s.handleHealth)
		r.Post("/v1/documents", s.handleCreate)
		r.Get("/v1/documents/{id}", s.handleGet)
		r.Delete("/v1/documents/{id}", s.handleDelete)
		r.Get("/v1/documents/{id}/nodes/{nodeID}", s.handleNode)
		r.Get("/v1/documents/{id}/diagram", s.handleDiagram)
	})
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
