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

//go:build integration
// +build integration

// Package rest provides REST API integration tests for go-keyring. The
// daemon is exercised over a real HTTP listener against real keyring
// directories, with a second library handle standing in for another
// process of the same user.
package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-keyring/internal/rest"
	"github.com/jeremyhahn/go-keyring/pkg/keyring"
	"github.com/jeremyhahn/go-keyring/pkg/logging"
	"github.com/jeremyhahn/go-keyring/pkg/ratelimit"
)

const sessionContext = "session_bus"

// daemonFixture is a keyring daemon listening on a real socket.
type daemonFixture struct {
	baseURL string
	client  *http.Client
	dir     string
}

func newDaemonFixture(t *testing.T, limiter *ratelimit.Limiter) *daemonFixture {
	t.Helper()

	dir := t.TempDir()
	logger := logging.NewSlogAdapter(&logging.SlogConfig{Level: logging.LevelError})

	keyrings := make(map[string]*keyring.Keyring)
	for _, name := range []string{keyring.DefaultContext, sessionContext} {
		kr, err := keyring.New(&keyring.Config{
			Context: name,
			Dir:     dir,
			Logger:  logger,
		})
		if err != nil {
			t.Fatalf("Failed to open keyring %s: %v", name, err)
		}
		t.Cleanup(func() { kr.Close() })
		keyrings[name] = kr
	}

	server, err := rest.NewServer(&rest.Config{
		Keyrings:    keyrings,
		Version:     "integration",
		RateLimiter: limiter,
		Logger:      logger,
		MetricsPath: "/metrics",
	})
	if err != nil {
		t.Fatalf("Failed to create REST server: %v", err)
	}

	listener := httptest.NewServer(server.Handler())
	t.Cleanup(listener.Close)

	return &daemonFixture{
		baseURL: listener.URL,
		client:  listener.Client(),
		dir:     dir,
	}
}

func (f *daemonFixture) get(t *testing.T, path string, out interface{}) *http.Response {
	t.Helper()
	return f.do(t, http.MethodGet, path, out)
}

func (f *daemonFixture) post(t *testing.T, path string, out interface{}) *http.Response {
	t.Helper()
	return f.do(t, http.MethodPost, path, out)
}

func (f *daemonFixture) do(t *testing.T, method, path string, out interface{}) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, f.baseURL+path, nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("Failed to decode %s %s response %q: %v", method, path, body, err)
		}
	}

	return resp
}

// TestRESTDaemon_FullFlow walks the daemon through the whole keyring
// lifecycle and verifies another process sees every step on disk.
func TestRESTDaemon_FullFlow(t *testing.T) {
	f := newDaemonFixture(t, nil)

	t.Run("Health", func(t *testing.T) {
		resp := f.get(t, "/health", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Health returned %d", resp.StatusCode)
		}
	})

	t.Run("Contexts", func(t *testing.T) {
		var contexts rest.ListContextsResponse
		resp := f.get(t, "/api/v1/contexts", &contexts)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Contexts returned %d", resp.StatusCode)
		}
		if len(contexts.Contexts) != 2 {
			t.Fatalf("Expected 2 contexts, got %v", contexts.Contexts)
		}
	})

	var minted rest.BestKeyResponse
	t.Run("BestKeyMints", func(t *testing.T) {
		resp := f.post(t, "/api/v1/keyrings/"+sessionContext+"/best-key", &minted)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Best-key returned %d", resp.StatusCode)
		}
		if !minted.Minted {
			t.Error("First selection should mint a key")
		}
	})

	t.Run("KeysListed", func(t *testing.T) {
		var keys rest.ListKeysResponse
		resp := f.get(t, "/api/v1/keyrings/"+sessionContext+"/keys", &keys)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Keys returned %d", resp.StatusCode)
		}
		if len(keys.Keys) != 1 || keys.Keys[0].ID != minted.KeyID {
			t.Fatalf("Expected key %d in list, got %+v", minted.KeyID, keys.Keys)
		}
	})

	t.Run("OtherProcessSeesKey", func(t *testing.T) {
		other, err := keyring.New(&keyring.Config{
			Context: sessionContext,
			Dir:     f.dir,
			Logger:  logging.NewSlogAdapter(&logging.SlogConfig{Level: logging.LevelError}),
		})
		if err != nil {
			t.Fatalf("Failed to open second handle: %v", err)
		}
		defer other.Close()

		key, ok := other.KeyByID(minted.KeyID)
		if !ok {
			t.Fatalf("Second handle cannot see key %d", minted.KeyID)
		}
		if len(key.Secret) != keyring.SecretLength {
			t.Errorf("Expected %d secret bytes, got %d", keyring.SecretLength, len(key.Secret))
		}
	})

	t.Run("SecondSelectionReuses", func(t *testing.T) {
		var again rest.BestKeyResponse
		resp := f.post(t, "/api/v1/keyrings/"+sessionContext+"/best-key", &again)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Best-key returned %d", resp.StatusCode)
		}
		if again.Minted {
			t.Error("Second selection should reuse the fresh key")
		}
		if again.KeyID != minted.KeyID {
			t.Errorf("Expected key %d, got %d", minted.KeyID, again.KeyID)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		var reloaded rest.ReloadResponse
		resp := f.post(t, "/api/v1/keyrings/"+sessionContext+"/reload", &reloaded)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Reload returned %d", resp.StatusCode)
		}
		if reloaded.Keys != 1 {
			t.Errorf("Expected 1 key after reload, got %d", reloaded.Keys)
		}
	})

	t.Run("Purge", func(t *testing.T) {
		var purged rest.PurgeResponse
		resp := f.post(t, "/api/v1/keyrings/"+sessionContext+"/purge", &purged)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Purge returned %d", resp.StatusCode)
		}
		if purged.KeysRemaining != 1 || purged.KeysPurged != 0 {
			t.Errorf("Fresh key should survive the purge: %+v", purged)
		}
	})

	t.Run("UnknownContext404", func(t *testing.T) {
		resp := f.get(t, "/api/v1/keyrings/not_served/keys", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected 404 for unserved context, got %d", resp.StatusCode)
		}
	})
}

// TestRESTDaemon_CorrelationIDs verifies correlation propagation over a
// real connection.
func TestRESTDaemon_CorrelationIDs(t *testing.T) {
	f := newDaemonFixture(t, nil)

	t.Run("Generated", func(t *testing.T) {
		resp := f.get(t, "/api/v1/contexts", nil)
		if resp.Header.Get("X-Correlation-ID") == "" {
			t.Error("No correlation ID generated")
		}
	})

	t.Run("Echoed", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, f.baseURL+"/api/v1/contexts", nil)
		if err != nil {
			t.Fatalf("Failed to build request: %v", err)
		}
		req.Header.Set("X-Correlation-ID", "integration-flow-1")

		resp, err := f.client.Do(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()

		if got := resp.Header.Get("X-Correlation-ID"); got != "integration-flow-1" {
			t.Errorf("Expected echoed correlation ID, got %q", got)
		}
	})
}

// TestRESTDaemon_RateLimiting verifies throttling applies to API traffic
// but never to probes or scrapes.
func TestRESTDaemon_RateLimiting(t *testing.T) {
	limiter := ratelimit.New(&ratelimit.Config{
		Enabled:           true,
		RequestsPerMinute: 1,
		Burst:             3,
	})
	t.Cleanup(limiter.Stop)

	f := newDaemonFixture(t, limiter)

	var saw429 bool
	for i := 0; i < 5; i++ {
		resp := f.get(t, "/api/v1/contexts", nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			saw429 = true
			break
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Request %d returned unexpected status %d", i+1, resp.StatusCode)
		}
	}
	if !saw429 {
		t.Error("API traffic was never throttled")
	}

	for _, path := range []string{"/health", "/health/live", "/metrics"} {
		resp := f.get(t, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s should bypass the limiter, got %d", path, resp.StatusCode)
		}
	}
}

// TestRESTDaemon_MetricsScrape verifies operations surface in the
// Prometheus scrape output.
func TestRESTDaemon_MetricsScrape(t *testing.T) {
	f := newDaemonFixture(t, nil)

	// Generate some traffic worth counting
	var minted rest.BestKeyResponse
	f.post(t, "/api/v1/keyrings/"+keyring.DefaultContext+"/best-key", &minted)

	req, err := http.NewRequest(http.MethodGet, f.baseURL+"/metrics", nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read scrape body: %v", err)
	}

	scrape := string(body)
	for _, metric := range []string{
		"keyring_http_requests_total",
		"keyring_operations_total",
		fmt.Sprintf(`keyring_keys_total{context="%s"}`, keyring.DefaultContext),
	} {
		if !strings.Contains(scrape, metric) {
			t.Errorf("Scrape output missing %s", metric)
		}
	}
}
