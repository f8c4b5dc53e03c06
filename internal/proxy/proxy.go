// Package proxy implements the HTTP Front End (C7): it terminates client
// connections, validates inbound Anthropic Messages API requests, and wires
// them through to the Request Dispatcher (C6), writing back either a
// buffered JSON response or an Anthropic SSE stream.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
	"github.com/mkroman/model-router-proxy/internal/dispatch"
	obsmw "github.com/mkroman/model-router-proxy/internal/observability/middleware"
)

// Version is reported on GET /health.
const Version = "0.1.0"

// defaultMaxBodyBytes bounds a single request body; oversized bodies fail
// with invalid_request_error rather than exhausting memory.
const defaultMaxBodyBytes = 10 << 20

// Proxy is the HTTP server for this proxy's single client-facing surface.
type Proxy struct {
	mux          *chi.Mux
	server       *http.Server
	dispatcher   *dispatch.Dispatcher
	validate     *validator.Validate
	maxBodyBytes int64
}

// Option configures optional Proxy behavior.
type Option func(*Proxy)

// WithMaxBodyBytes overrides the default request body size ceiling.
func WithMaxBodyBytes(n int64) Option {
	return func(p *Proxy) { p.maxBodyBytes = n }
}

// New builds a Proxy ready to Start. health backs GET /readyz.
func New(dispatcher *dispatch.Dispatcher, health ReadinessChecker, opts ...Option) (*Proxy, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("proxy: dispatcher is required")
	}

	p := &Proxy{
		dispatcher:   dispatcher,
		validate:     validator.New(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(p)
	}

	r := chi.NewRouter()
	r.Use(
		Recovery,
		obsmw.RequestIDGeneration,
		obsmw.TraceContextExtraction,
		obsmw.Logging(slog.Default()),
		obsmw.RequestIDPropagation,
		RequestSizeLimit(p.maxBodyBytes),
	)

	r.Post("/v1/messages", p.handleMessages)
	r.Get("/health", healthHandler(Version))
	r.Get("/livez", livenessHandler())
	r.Get("/readyz", readinessHandler(health))
	r.NotFound(notFoundHandler)

	p.mux = r
	return p, nil
}

// notFoundHandler answers unknown paths with a 404 envelope of type
// "not_found", distinct from the not_found_error kind an upstream 404 maps to.
func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, anthropic.NewError("not_found", "the requested resource was not found"), http.StatusNotFound)
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mux.ServeHTTP(w, r)
}

// Start begins listening on addr in the background, returning a channel that
// receives the terminal error from ListenAndServe (nil on a clean Shutdown).
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	p.server = &http.Server{
		Addr:    addr,
		Handler: p,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	slog.InfoContext(ctx, "listening", "addr", addr)
	return errCh, nil
}

// Shutdown gracefully stops the server.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}
