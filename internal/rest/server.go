// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keyring.
//
// go-keyring is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremyhahn/go-keyring/pkg/keyring"
	"github.com/jeremyhahn/go-keyring/pkg/logging"
	"github.com/jeremyhahn/go-keyring/pkg/metrics"
	"github.com/jeremyhahn/go-keyring/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the keyring REST API server.
type Server struct {
	server      *http.Server
	handlers    *HandlerContext
	addr        string
	tlsConfig   *tls.Config
	limiter     *ratelimit.Limiter
	logger      logging.Logger
	metricsPath string
}

// KeyringRegistry is defined in handlers.go

// Config holds the REST server configuration.
type Config struct {
	// Addr is the listen address (default: 127.0.0.1:8448). Loopback is
	// the default on purpose; keyring clients share the host with the
	// keyring files.
	Addr string

	// Keyrings is a map of context name to open Keyring instances
	Keyrings map[string]*keyring.Keyring

	// Version is the API version string
	Version string

	// TLSConfig is the TLS configuration for HTTPS (optional)
	TLSConfig *tls.Config

	// RateLimiter throttles API routes when set and enabled (optional).
	// Health probes and the metrics endpoint are never throttled.
	RateLimiter *ratelimit.Limiter

	// Logger is the logging adapter (optional, uses the package default
	// if not provided)
	Logger logging.Logger

	// MetricsPath mounts the Prometheus scrape handler when non-empty
	// (optional)
	MetricsPath string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if len(cfg.Keyrings) == 0 {
		return nil, fmt.Errorf("at least one keyring context is required")
	}

	// Set defaults
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8448"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
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

	// Set up logger (default if not provided)
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}

	// Create keyring registry
	registry := NewKeyringRegistry(cfg.Keyrings)

	// Create handler context
	handlers := NewHandlerContext(registry, cfg.Version)

	// Create server instance
	server := &Server{
		handlers:    handlers,
		addr:        cfg.Addr,
		tlsConfig:   cfg.TLSConfig,
		limiter:     cfg.RateLimiter,
		logger:      log,
		metricsPath: cfg.MetricsPath,
	}

	// Create router with middleware
	router := server.setupRouter()

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    cfg.TLSConfig,
	}

	server.server = httpServer

	return server, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware()) // Add correlation ID before logging
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware) // Metrics middleware
	r.Use(CORSMiddleware)

	// Legacy health endpoint (backwards compatibility)
	r.Get("/health", s.handlers.HealthHandler)
	r.Head("/health", s.handlers.HealthHandler)

	// Kubernetes-style health probes (never rate limited)
	r.Get("/health/live", s.handlers.LivenessHandler)
	r.Get("/health/ready", s.handlers.ReadinessHandler)
	r.Get("/health/startup", s.handlers.StartupHandler)

	// Prometheus scrape endpoint (never rate limited; scrapers poll hard)
	if s.metricsPath != "" {
		r.Handle(s.metricsPath, promhttp.Handler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Throttle API traffic only, so probes and scrapes stay exempt
		if s.limiter != nil && s.limiter.IsEnabled() {
			r.Use(ratelimit.Middleware(s.limiter))
		}

		// Context enumeration
		r.Get("/contexts", s.handlers.ListContextsHandler)

		// Per-keyring endpoints
		r.Route("/keyrings/{context}", func(r chi.Router) {
			r.Get("/", s.handlers.GetKeyringHandler)
			r.Get("/keys", s.handlers.ListKeysHandler)
			r.Get("/keys/{id}", s.handlers.GetKeyHandler)
			r.Post("/best-key", s.handlers.BestKeyHandler)
			r.Post("/reload", s.handlers.ReloadHandler)
			r.Post("/purge", s.handlers.PurgeHandler)
		})
	})

	return r
}

// Start starts the REST API server.
func (s *Server) Start() error {
	if s.tlsConfig != nil {
		s.logger.Info("Starting HTTPS server",
			logging.String("addr", s.addr),
			logging.Int("contexts", len(s.handlers.Registry.Contexts())))

		if err := s.server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
	} else {
		s.logger.Info("Starting HTTP server",
			logging.String("addr", s.addr),
			logging.Int("contexts", len(s.handlers.Registry.Contexts())))

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", logging.Error(err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.addr
}

// SetHealthChecker sets the health checker for the server.
func (s *Server) SetHealthChecker(checker HealthChecker) {
	s.handlers.SetHealthChecker(checker)
}

// Handler returns the fully configured router. Tests use it to drive the
// API through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
