// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seal.
//
// go-seal is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rest exposes a keyserver.Service over HTTP with chi.
//
// Routes:
//
//	POST /v1/fetch_key    release ElGamal-encrypted user secret keys
//	GET  /v1/service      server object id and public key
//	GET  /health/live     liveness probe
//	GET  /health/ready    readiness probe
//	GET  /health/startup  startup probe
//	GET  /metrics         prometheus metrics (when enabled)
//
// Errors are JSON bodies of the form {"error", "message", "code"}.
package rest

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/health"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/keyserver"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/metrics"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/ratelimit"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Config holds the REST server configuration.
type Config struct {
	// Service answers key requests. Required.
	Service *keyserver.Service

	// Addr is the listen address (default ":8480").
	Addr string

	// TLSConfig enables HTTPS when set.
	TLSConfig *tls.Config

	// Logger defaults to a no-op logger.
	Logger logging.Logger

	// Health backs the /health endpoints. A fresh started checker is used
	// when nil.
	Health *health.Checker

	// RateLimiter throttles /v1 routes. Nil disables rate limiting.
	RateLimiter *ratelimit.Limiter

	// MetricsPath serves prometheus metrics when non-empty.
	MetricsPath string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server is the key server HTTP front end.
type Server struct {
	server  *http.Server
	service *keyserver.Service
	health  *health.Checker
	limiter *ratelimit.Limiter
	logger  logging.Logger
	metrics string
}

// NewServer creates a server. It does not listen until Start or Serve.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Service == nil {
		return nil, fmt.Errorf("key server service is required")
	}

	addr := cfg.Addr
	if addr == "" {
		addr = ":8480"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	checker := cfg.Health
	if checker == nil {
		checker = health.NewChecker()
		checker.MarkStarted()
	}

	s := &Server{
		service: cfg.Service,
		health:  checker,
		limiter: cfg.RateLimiter,
		logger:  log.With(logging.String("component", "rest")),
		metrics: cfg.MetricsPath,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.setupRouter(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		TLSConfig:         cfg.TLSConfig,
	}
	return s, nil
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health/live", s.LivenessHandler)
	r.Get("/health/ready", s.ReadinessHandler)
	r.Get("/health/startup", s.StartupHandler)
	if s.metrics != "" {
		r.Handle(s.metrics, promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(ratelimit.Middleware(s.limiter, s.rateLimited))
		}
		r.Get(keyserver.ServicePath, s.ServiceHandler)
		r.With(middleware.AllowContentType("application/json")).
			Post(keyserver.FetchKeyPath, s.FetchKeyHandler)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorWithMessage(w, ErrNotFound, "no such route", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorWithMessage(w, ErrMethodNotAllowed, "method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop. It returns nil after a graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting key server",
		logging.String("addr", ln.Addr().String()),
		logging.Bool("tls", s.server.TLSConfig != nil),
		logging.String("server", s.service.ObjectID().String()))

	var err error
	if s.server.TLSConfig != nil {
		err = s.server.ServeTLS(ln, "", "")
	} else {
		err = s.server.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("key server stopped: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down key server")
	s.health.MarkNotStarted()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", logging.Error(err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
