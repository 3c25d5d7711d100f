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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremyhahn/go-keyring/internal/config"
	"github.com/jeremyhahn/go-keyring/internal/rest"
	"github.com/jeremyhahn/go-keyring/pkg/fsutil"
	"github.com/jeremyhahn/go-keyring/pkg/health"
	"github.com/jeremyhahn/go-keyring/pkg/keyring"
	"github.com/jeremyhahn/go-keyring/pkg/logging"
	"github.com/jeremyhahn/go-keyring/pkg/metrics"
	"github.com/jeremyhahn/go-keyring/pkg/ratelimit"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file (empty uses built-in defaults)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		fmt.Printf("keyringd - cookie keyring daemon\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	// Check for config file override via environment
	if envConfig := os.Getenv("KEYRINGD_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	slog.Info("Starting keyringd",
		"config", *configPath,
		"version", version)

	// Load configuration
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		slog.Error("Failed to configure logging", slog.Any("error", err))
		os.Exit(1)
	}

	if !cfg.Metrics.Enabled {
		metrics.Disable()
	}

	slog.Info("Configuration loaded successfully",
		"contexts", cfg.Keyring.Contexts,
		"addr", cfg.Addr())

	// Open the configured keyrings
	keyrings := make(map[string]*keyring.Keyring, len(cfg.Keyring.Contexts))
	for _, name := range cfg.Keyring.Contexts {
		krCfg := cfg.KeyringConfig(name)
		krCfg.Logger = logger

		kr, err := keyring.New(krCfg)
		if err != nil {
			slog.Error("Failed to open keyring",
				slog.String("context", name),
				slog.Any("error", err))
			closeKeyrings(keyrings, logger)
			os.Exit(1)
		}
		keyrings[name] = kr
		metrics.SetKeysTotal(name, float64(len(kr.Keys())))
	}

	// Load TLS configuration if enabled
	tlsConfig, err := cfg.TLS.LoadTLSConfig()
	if err != nil {
		slog.Error("Failed to load TLS configuration", slog.Any("error", err))
		closeKeyrings(keyrings, logger)
		os.Exit(1)
	}

	// Set up rate limiting
	limiter := ratelimit.New(&ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMin,
		Burst:             cfg.RateLimit.Burst,
	})
	defer limiter.Stop()

	// Register health checks before the listener comes up
	checker := newHealthChecker(keyrings)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	// Create the REST server
	restServer, err := rest.NewServer(&rest.Config{
		Addr:        cfg.Addr(),
		Keyrings:    keyrings,
		Version:     version,
		TLSConfig:   tlsConfig,
		RateLimiter: limiter,
		Logger:      logger,
		MetricsPath: metricsPath,
	})
	if err != nil {
		slog.Error("Failed to create server", slog.Any("error", err))
		closeKeyrings(keyrings, logger)
		os.Exit(1)
	}

	restServer.SetHealthChecker(checker)
	checker.MarkStarted()

	// Setup signal handler for graceful shutdown
	shutdownCtx := setupSignalHandler()

	// Keep the runtime gauges fresh while the daemon runs
	if cfg.Metrics.Enabled {
		metrics.StartResourceCollector(shutdownCtx, 30*time.Second)
	}

	// Start the REST server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := restServer.Start(); err != nil {
			errChan <- err
		}
	}()

	slog.Info("keyringd started successfully", "addr", cfg.Addr())

	// Wait for shutdown signal or error
	select {
	case <-shutdownCtx.Done():
		slog.Info("Shutdown signal received")
	case err := <-errChan:
		slog.Error("Server error", slog.Any("error", err))
	}

	// Gracefully shutdown
	shutdownTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := restServer.Stop(shutdownTimeout); err != nil {
		slog.Error("Error during server shutdown", slog.Any("error", err))
	}

	closeKeyrings(keyrings, logger)

	slog.Info("keyringd stopped successfully")
}

// buildLogger constructs the structured logger from the logging section of
// the configuration.
func buildLogger(cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	return logging.NewSlogAdapter(&logging.SlogConfig{
		Level:  level,
		Format: cfg.Logging.Format,
	}), nil
}

// newHealthChecker registers a readiness check per served keyring. The
// checks watch the keyring directory; an inaccessible or non-private
// directory makes every keyring operation fail, so readiness should drop
// before clients hit those errors.
func newHealthChecker(keyrings map[string]*keyring.Keyring) *health.Checker {
	checker := health.NewChecker()

	for name, kr := range keyrings {
		checkName := fmt.Sprintf("keyring-%s", name)
		dir := kr.Dir()

		checker.RegisterCheck(checkName, func(ctx context.Context) health.CheckResult {
			start := time.Now()
			err := fsutil.IsDirPrivateToUser(dir)
			latency := time.Since(start)

			if err != nil && !os.IsNotExist(err) {
				return health.CheckResult{
					Name:    checkName,
					Status:  health.StatusUnhealthy,
					Message: "Keyring directory is missing or not private",
					Error:   err.Error(),
					Latency: latency,
				}
			}

			// A directory that does not exist yet is fine; it appears
			// once the first key is minted.
			return health.CheckResult{
				Name:    checkName,
				Status:  health.StatusHealthy,
				Message: "Keyring directory is private",
				Latency: latency,
			}
		})
	}

	return checker
}

// closeKeyrings releases every open keyring, logging failures rather than
// aborting; shutdown continues regardless.
func closeKeyrings(keyrings map[string]*keyring.Keyring, logger logging.Logger) {
	for name, kr := range keyrings {
		if err := kr.Close(); err != nil {
			logger.Error("Failed to close keyring",
				logging.String("context", name),
				logging.Error(err))
		}
	}
}

// setupSignalHandler sets up signal handling for graceful shutdown
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	return ctx
}
