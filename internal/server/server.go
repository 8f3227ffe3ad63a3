// Package server exposes the comparison pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/dimlens/pkg/observability"
	"github.com/Sumatoshi-tech/dimlens/pkg/plotpage"
	"github.com/Sumatoshi-tech/dimlens/pkg/report"
	"github.com/Sumatoshi-tech/dimlens/pkg/resultcache"
)

// Route operation names, used as the op attribute of request metrics.
const (
	OpCompare      = "compare"
	OpTreemap      = "treemap"
	OpOptions      = "options"
	OpFiltersApply = "filters.apply"
	OpFiltersParse = "filters.parse"
)

const (
	defaultMaxBodyBytes = 8 << 20
	defaultHeight       = 600
)

// Deps are the collaborators of a Server. Zero-value fields use defaults.
type Deps struct {
	Tracer  trace.Tracer
	RED     *observability.REDMetrics
	Logger  *slog.Logger
	Metrics http.Handler
	Version string

	// Report holds the default comparison options; requests may override the column order.
	Report       report.Options
	Strict       bool
	MaxBodyBytes int64
	Theme        plotpage.Theme
	Height       int

	// Cache memoizes results of identical compare and treemap requests. Nil disables it.
	Cache *resultcache.Cache
}

// Timeouts bound the lifetime of HTTP connections.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

// Server serves the dimlens HTTP API.
type Server struct {
	deps Deps
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.Tracer == nil {
		deps.Tracer = nooptrace.NewTracerProvider().Tracer("dimlens")
	}

	if deps.Logger == nil {
		deps.Logger = observability.DiscardLogger()
	}

	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = defaultMaxBodyBytes
	}

	if deps.Height <= 0 {
		deps.Height = defaultHeight
	}

	return &Server{deps: deps}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "POST /api/v1/compare", OpCompare, s.handleCompare)
	s.route(mux, "POST /api/v1/treemap", OpTreemap, s.handleTreemap)
	s.route(mux, "POST /api/v1/options", OpOptions, s.handleOptions)
	s.route(mux, "POST /api/v1/filters/apply", OpFiltersApply, s.handleFiltersApply)
	s.route(mux, "GET /api/v1/filters/parse", OpFiltersParse, s.handleFiltersParse)

	mux.Handle("GET /healthz", observability.HealthHandler(s.deps.Version))

	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}

	return mux
}

func (s *Server) route(mux *http.ServeMux, pattern, op string, h http.HandlerFunc) {
	mux.Handle(pattern, observability.HTTPMiddleware(s.deps.Tracer, s.deps.RED, op, h))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within timeouts.Shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string, timeouts Timeouts) error {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	return s.Serve(ctx, listener, timeouts)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener, timeouts Timeouts) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  timeouts.Read,
		WriteTimeout: timeouts.Write,
		IdleTimeout:  timeouts.Idle,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- srv.Serve(listener)
	}()

	s.deps.Logger.InfoContext(ctx, "server listening", "addr", listener.Addr().String())

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Shutdown)
	defer cancel()

	s.deps.Logger.InfoContext(shutdownCtx, "server shutting down")

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	return nil
}
