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

// Package rest provides a REST API server for the go-keyring library.
//
// The REST API exposes keyring metadata and maintenance operations over
// HTTP: listing served contexts, inspecting keys, rotating the best key,
// reloading from disk, and purging expired keys. Cookie secrets are never
// carried over the API; clients that need secret bytes read the keyring
// file directly, which is the point of a shared-filesystem keyring.
//
// # Server Setup
//
// Create a REST server by providing a configuration with one or more open
// keyrings:
//
//	import (
//	    "github.com/jeremyhahn/go-keyring/internal/rest"
//	    "github.com/jeremyhahn/go-keyring/pkg/keyring"
//	)
//
//	// Open the keyrings to serve
//	kr, _ := keyring.New(&keyring.Config{Context: keyring.DefaultContext})
//
//	// Create REST server
//	server, _ := rest.NewServer(&rest.Config{
//	    Addr:     "127.0.0.1:8448",
//	    Keyrings: map[string]*keyring.Keyring{kr.Context(): kr},
//	    Version:  "1.0.0",
//	})
//
//	// Start server
//	go server.Start()
//
//	// Graceful shutdown
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	server.Stop(ctx)
//
// # API Endpoints
//
// Health Check:
//   - GET /health - Returns server health status
//   - GET /health/live - Kubernetes liveness probe
//   - GET /health/ready - Kubernetes readiness probe
//   - GET /health/startup - Kubernetes startup probe
//
// Context Management:
//   - GET /api/v1/contexts - List served contexts
//
// Keyring Operations:
//   - GET /api/v1/keyrings/{context} - Keyring metadata (user, path, keys)
//   - GET /api/v1/keyrings/{context}/keys - List key metadata
//   - GET /api/v1/keyrings/{context}/keys/{id} - Get one key's metadata
//   - POST /api/v1/keyrings/{context}/best-key - Select (or mint) the best key
//   - POST /api/v1/keyrings/{context}/reload - Re-read the keyring file
//   - POST /api/v1/keyrings/{context}/purge - Rewrite the file without expired keys
//
// # Request/Response Format
//
// All responses use JSON. Key metadata never includes the secret, only its
// length:
//
//	GET /api/v1/keyrings/org_freedesktop_general/keys
//	{
//	  "context": "org_freedesktop_general",
//	  "keys": [
//	    {
//	      "id": 42,
//	      "created_at": "2025-06-01T10:00:00Z",
//	      "age_seconds": 120,
//	      "secret_bytes": 24
//	    }
//	  ]
//	}
//
// Best-key selection reports whether the call minted a fresh key:
//
//	POST /api/v1/keyrings/org_freedesktop_general/best-key
//	{
//	  "context": "org_freedesktop_general",
//	  "key_id": 43,
//	  "minted": true
//	}
//
// # Error Handling
//
// The server returns standard HTTP status codes:
//   - 200 OK - Request successful
//   - 400 Bad Request - Invalid context name or key ID
//   - 404 Not Found - Context not served or key not found
//   - 429 Too Many Requests - Rate limit exceeded
//   - 500 Internal Server Error - Server error
//   - 503 Service Unavailable - Lock contention or closed keyring (retryable)
//
// Error responses include a JSON body with error details:
//
//	{
//	  "error": "context not served by this daemon",
//	  "message": "context not served by this daemon",
//	  "code": 404
//	}
//
// # Middleware
//
// The server includes the following middleware:
//   - Recovery - Recovers from panics and returns 500 errors
//   - Correlation - Propagates X-Correlation-ID for request tracing
//   - Logging - Logs all HTTP requests with timing
//   - Metrics - Records Prometheus request metrics
//   - CORS - Adds CORS headers for cross-origin requests
//   - Rate limiting - Throttles /api/v1 routes per client IP
//
// Health probes and the metrics endpoint are exempt from rate limiting.
//
// # Security Considerations
//
// The API serves key metadata only and binds loopback by default. For
// wider exposure, consider:
//   - Enabling TLS via Config.TLSConfig
//   - Running behind a reverse proxy with TLS termination
//   - Keeping the rate limiter enabled
//
// Secrets stay in the keyring files; filesystem permissions remain the
// actual access control, exactly as with direct library use.
package rest
