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
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremyhahn/go-keyring/pkg/health"
	"github.com/jeremyhahn/go-keyring/pkg/keyring"
	"github.com/jeremyhahn/go-keyring/pkg/metrics"
)

// KeyringRegistry resolves context names to open keyrings. The served set
// is fixed at startup: contexts come from configuration, never from
// requests, so the map is immutable and needs no locking.
type KeyringRegistry struct {
	keyrings map[string]*keyring.Keyring
}

// NewKeyringRegistry creates a registry over the given keyrings.
func NewKeyringRegistry(keyrings map[string]*keyring.Keyring) *KeyringRegistry {
	m := make(map[string]*keyring.Keyring, len(keyrings))
	for name, kr := range keyrings {
		m[name] = kr
	}
	return &KeyringRegistry{keyrings: m}
}

// Get returns the keyring serving a context.
func (reg *KeyringRegistry) Get(context string) (*keyring.Keyring, bool) {
	kr, ok := reg.keyrings[context]
	return kr, ok
}

// Contexts returns the served context names, sorted.
func (reg *KeyringRegistry) Contexts() []string {
	contexts := make([]string, 0, len(reg.keyrings))
	for name := range reg.keyrings {
		contexts = append(contexts, name)
	}
	sort.Strings(contexts)
	return contexts
}

// CloseAll releases every keyring. Called once during shutdown; the
// last error wins, matching how little there is to do about the rest.
func (reg *KeyringRegistry) CloseAll() error {
	var lastErr error
	for _, kr := range reg.keyrings {
		if err := kr.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// HandlerContext holds dependencies for REST handlers.
type HandlerContext struct {
	// Version is the API version
	Version string
	// Registry resolves contexts to keyrings
	Registry *KeyringRegistry
	// HealthChecker manages health check probes
	HealthChecker HealthChecker

	now func() time.Time
}

// HealthChecker defines the interface for health checking.
type HealthChecker interface {
	Live(ctx context.Context) health.CheckResult
	Ready(ctx context.Context) []health.CheckResult
	Startup(ctx context.Context) health.CheckResult
}

// NewHandlerContext creates a new handler context.
func NewHandlerContext(registry *KeyringRegistry, version string) *HandlerContext {
	return &HandlerContext{
		Version:  version,
		Registry: registry,
		now:      time.Now,
	}
}

// SetHealthChecker sets the health checker for the handler context.
func (h *HandlerContext) SetHealthChecker(checker HealthChecker) {
	h.HealthChecker = checker
}

// HealthHandler handles GET /health requests.
func (h *HandlerContext) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: h.Version,
	}
	writeJSON(w, resp, http.StatusOK)
}

// ListContextsHandler handles GET /api/v1/contexts requests.
func (h *HandlerContext) ListContextsHandler(w http.ResponseWriter, r *http.Request) {
	resp := ListContextsResponse{
		Contexts: h.Registry.Contexts(),
	}
	writeJSON(w, resp, http.StatusOK)
}

// keyringFor resolves the {context} URL parameter to a served keyring,
// writing the error response itself when resolution fails.
func (h *HandlerContext) keyringFor(w http.ResponseWriter, r *http.Request) (*keyring.Keyring, bool) {
	context := chi.URLParam(r, "context")
	if err := keyring.ValidateContext(context); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return nil, false
	}

	kr, ok := h.Registry.Get(context)
	if !ok {
		writeError(w, ErrContextNotServed, http.StatusNotFound)
		return nil, false
	}
	return kr, true
}

// GetKeyringHandler handles GET /api/v1/keyrings/{context} requests.
func (h *HandlerContext) GetKeyringHandler(w http.ResponseWriter, r *http.Request) {
	kr, ok := h.keyringFor(w, r)
	if !ok {
		return
	}

	now := h.now()
	keys := kr.Keys()
	metas := make([]KeyMetadata, len(keys))
	for i, key := range keys {
		metas[i] = newKeyMetadata(key, now)
	}
	metrics.SetKeysTotal(kr.Context(), float64(len(keys)))

	resp := KeyringInfo{
		Context: kr.Context(),
		User:    kr.User(),
		Path:    kr.Path(),
		Keys:    metas,
	}
	writeJSON(w, resp, http.StatusOK)
}

// ListKeysHandler handles GET /api/v1/keyrings/{context}/keys requests.
func (h *HandlerContext) ListKeysHandler(w http.ResponseWriter, r *http.Request) {
	kr, ok := h.keyringFor(w, r)
	if !ok {
		return
	}

	start := time.Now()
	keys := kr.Keys()
	metrics.RecordOperation(metrics.OpList, kr.Context(), metrics.StatusSuccess,
		time.Since(start).Seconds())
	metrics.SetKeysTotal(kr.Context(), float64(len(keys)))

	now := h.now()
	metas := make([]KeyMetadata, len(keys))
	for i, key := range keys {
		metas[i] = newKeyMetadata(key, now)
	}

	resp := ListKeysResponse{
		Context: kr.Context(),
		Keys:    metas,
	}
	writeJSON(w, resp, http.StatusOK)
}

// GetKeyHandler handles GET /api/v1/keyrings/{context}/keys/{id} requests.
func (h *HandlerContext) GetKeyHandler(w http.ResponseWriter, r *http.Request) {
	kr, ok := h.keyringFor(w, r)
	if !ok {
		return
	}

	id, err := parseKeyIDParam(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	key, found := kr.KeyByID(id)
	if !found {
		writeError(w, ErrKeyNotFound, http.StatusNotFound)
		return
	}

	writeJSON(w, newKeyMetadata(key, h.now()), http.StatusOK)
}

// BestKeyHandler handles POST /api/v1/keyrings/{context}/best-key requests.
//
// This is the hot path of the daemon: select the key a new authentication
// challenge should use, minting and persisting a fresh one when every held
// key is too old.
func (h *HandlerContext) BestKeyHandler(w http.ResponseWriter, r *http.Request) {
	kr, ok := h.keyringFor(w, r)
	if !ok {
		return
	}

	before := kr.Keys()

	start := time.Now()
	id, err := kr.BestKeyID()
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordOperation(metrics.OpBestKey, kr.Context(), metrics.StatusError, duration)
		metrics.RecordError(metrics.OpBestKey, kr.Context(), errorType(err))
		handleError(w, err)
		return
	}

	minted := !containsKeyID(before, id)
	if minted {
		metrics.RecordKeyMinted(kr.Context())
	}
	metrics.RecordOperation(metrics.OpBestKey, kr.Context(), metrics.StatusSuccess, duration)
	metrics.SetKeysTotal(kr.Context(), float64(len(kr.Keys())))

	resp := BestKeyResponse{
		Context: kr.Context(),
		KeyID:   id,
		Minted:  minted,
	}
	writeJSON(w, resp, http.StatusOK)
}

// ReloadHandler handles POST /api/v1/keyrings/{context}/reload requests.
// It re-reads the key file, picking up keys written by other processes.
func (h *HandlerContext) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	kr, ok := h.keyringFor(w, r)
	if !ok {
		return
	}

	start := time.Now()
	err := kr.Reload()
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordOperation(metrics.OpReload, kr.Context(), metrics.StatusError, duration)
		metrics.RecordError(metrics.OpReload, kr.Context(), errorType(err))
		handleError(w, err)
		return
	}

	keys := len(kr.Keys())
	metrics.RecordOperation(metrics.OpReload, kr.Context(), metrics.StatusSuccess, duration)
	metrics.SetKeysTotal(kr.Context(), float64(keys))

	resp := ReloadResponse{
		Context: kr.Context(),
		Keys:    keys,
	}
	writeJSON(w, resp, http.StatusOK)
}

// PurgeHandler handles POST /api/v1/keyrings/{context}/purge requests.
// It rewrites the key file under the advisory lock, dropping expired keys.
func (h *HandlerContext) PurgeHandler(w http.ResponseWriter, r *http.Request) {
	kr, ok := h.keyringFor(w, r)
	if !ok {
		return
	}

	// KeysPurged counts against the previously loaded view; keys another
	// process already dropped from disk are not re-counted here.
	before := len(kr.Keys())

	start := time.Now()
	remaining, err := kr.Purge()
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordOperation(metrics.OpPurge, kr.Context(), metrics.StatusError, duration)
		metrics.RecordError(metrics.OpPurge, kr.Context(), errorType(err))
		handleError(w, err)
		return
	}

	purged := before - remaining
	if purged < 0 {
		purged = 0
	}
	metrics.RecordOperation(metrics.OpPurge, kr.Context(), metrics.StatusSuccess, duration)
	metrics.RecordKeysPurged(kr.Context(), float64(purged))
	metrics.SetKeysTotal(kr.Context(), float64(remaining))

	resp := PurgeResponse{
		Context:       kr.Context(),
		KeysRemaining: remaining,
		KeysPurged:    purged,
	}
	writeJSON(w, resp, http.StatusOK)
}

// parseKeyIDParam parses the {id} URL parameter. Key IDs are
// non-negative int32s, so anything else is rejected before it reaches
// the keyring.
func parseKeyIDParam(param string) (int32, error) {
	id, err := strconv.ParseInt(param, 10, 32)
	if err != nil || id < 0 {
		return 0, ErrInvalidKeyID
	}
	return int32(id), nil
}

// containsKeyID reports whether keys holds a key with the given ID.
func containsKeyID(keys []keyring.Key, id int32) bool {
	for _, key := range keys {
		if key.ID == id {
			return true
		}
	}
	return false
}
