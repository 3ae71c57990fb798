// Package server assembles the API router and runs it as an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/janisto/gitops-demo/internal/http/routes"
	"github.com/janisto/gitops-demo/internal/platform/config"
	applog "github.com/janisto/gitops-demo/internal/platform/logging"
	"github.com/janisto/gitops-demo/internal/platform/metrics"
	appmiddleware "github.com/janisto/gitops-demo/internal/platform/middleware"
	"github.com/janisto/gitops-demo/internal/platform/openapi"
	"github.com/janisto/gitops-demo/internal/platform/respond"
)

const (
	title = "GitOps Demo API"

	maxBodyBytes    = 100 << 10 // 100 KB, the usual JSON body parser default
	shutdownTimeout = 10 * time.Second
)

// Server is the assembled API: router, Huma API and metrics.
type Server struct {
	cfg     config.Config
	version string
	router  chi.Router
	api     huma.API
	metrics *metrics.Metrics
}

// Option customizes a Server built by New.
type Option func(*Server)

// WithVersion sets the version reported in the OpenAPI document.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithMetrics records request metrics on m instead of a fresh registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New builds the router with the full middleware stack and registers all
// operations. It reads nothing from the environment; cfg is authoritative.
func New(cfg config.Config, opts ...Option) *Server {
	s := &Server{cfg: cfg, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	respond.Install()

	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	// An unsupported method on a known path gets the same 404 as an unknown
	// path, not chi's 405.
	router.MethodNotAllowed(respond.NotFoundHandler())

	router.Use(
		appmiddleware.Security(openapi.DocsPath),
		appmiddleware.Vary("Accept"),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// RealIP extracts client IP from X-Real-IP or X-Forwarded-For headers.
		// SECURITY: Only use behind a trusted reverse proxy (e.g., an ingress
		// controller). Without a trusted proxy, clients can spoof their IP.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxBodyBytes),
		appmiddleware.JSONBody(respond.Reject),
		// Routing ignores a trailing slash and letter case.
		chimiddleware.StripSlashes,
		appmiddleware.FoldCase,
		chimiddleware.GetHead,
		applog.RequestLogger(cfg.ProjectID),
		applog.AccessLogger(),
		s.metrics.Middleware(),
		respond.Recoverer(),
	)

	api := humachi.New(router, openapi.Config(title, s.version))
	openapi.AdvertiseCBOR(api)
	routes.Register(api, cfg.Environment)

	s.router = router
	s.api = api
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the Huma API the operations are registered on.
func (s *Server) API() huma.API {
	return s.api
}

// Metrics returns the collectors fed by the router.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run listens on cfg.Addr and serves until ctx is cancelled, then shuts down
// gracefully. When cfg.MetricsPort is set, /metrics is served on that port.
func Run(ctx context.Context, cfg config.Config, opts ...Option) error {
	s := New(cfg, opts...)

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	var metricsLn net.Listener
	if cfg.MetricsPort != "" {
		metricsLn, err = net.Listen("tcp", ":"+cfg.MetricsPort)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen metrics :%s: %w", cfg.MetricsPort, err)
		}
	}
	return s.Serve(ctx, ln, metricsLn)
}

// Serve serves the API on ln, and metrics on metricsLn when it is non-nil,
// until ctx is cancelled or a listener fails.
func (s *Server) Serve(ctx context.Context, ln, metricsLn net.Listener) error {
	servers := []*http.Server{newHTTPServer(s.router)}
	listeners := []net.Listener{ln}
	if metricsLn != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		servers = append(servers, newHTTPServer(mux))
		listeners = append(listeners, metricsLn)
	}

	applog.LogInfo(ctx, "API server running", zap.String("port", portOf(ln)))
	applog.LogInfo(ctx, "Environment", zap.String("environment", s.cfg.Environment))
	if metricsLn != nil {
		applog.LogInfo(ctx, "metrics listening", zap.String("port", portOf(metricsLn)))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		g.Go(func() error {
			if err := srv.Serve(listeners[i]); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", listeners[i].Addr(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		applog.LogInfo(context.Background(), "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		applog.LogError(context.Background(), "server stopped with error", err)
		return err
	}
	applog.LogInfo(context.Background(), "server exited")
	return nil
}

func newHTTPServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
}

func portOf(ln net.Listener) string {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return fmt.Sprint(addr.Port)
	}
	return ln.Addr().String()
}
