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
	"time"

	"github.com/jeremyhahn/go-keyring/pkg/keyring"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// KeyMetadata describes one key without exposing its secret. The API
// never carries cookie bytes; clients that need the secret read the
// keyring file directly, which is the point of a shared-filesystem
// keyring.
type KeyMetadata struct {
	ID          int32  `json:"id"`
	CreatedAt   string `json:"created_at"`
	AgeSeconds  int64  `json:"age_seconds"`
	SecretBytes int    `json:"secret_bytes"`
}

// newKeyMetadata converts a key into its API representation.
func newKeyMetadata(key keyring.Key, now time.Time) KeyMetadata {
	return KeyMetadata{
		ID:          key.ID,
		CreatedAt:   time.Unix(key.CreatedAt, 0).UTC().Format(time.RFC3339),
		AgeSeconds:  now.Unix() - key.CreatedAt,
		SecretBytes: len(key.Secret),
	}
}

// KeyringInfo describes a served keyring context.
type KeyringInfo struct {
	Context string        `json:"context"`
	User    string        `json:"user"`
	Path    string        `json:"path"`
	Keys    []KeyMetadata `json:"keys"`
}

// ListContextsResponse represents the response for listing contexts.
type ListContextsResponse struct {
	Contexts []string `json:"contexts"`
}

// ListKeysResponse represents the response for listing keys.
type ListKeysResponse struct {
	Context string        `json:"context"`
	Keys    []KeyMetadata `json:"keys"`
}

// BestKeyResponse represents the response for best-key selection.
type BestKeyResponse struct {
	Context string `json:"context"`
	KeyID   int32  `json:"key_id"`
	// Minted is true when no held key was fresh enough and a new one
	// was persisted to satisfy the request.
	Minted bool `json:"minted"`
}

// ReloadResponse represents the response for a reload.
type ReloadResponse struct {
	Context string `json:"context"`
	Keys    int    `json:"keys"`
}

// PurgeResponse represents the response for a purge.
type PurgeResponse struct {
	Context       string `json:"context"`
	KeysRemaining int    `json:"keys_remaining"`
	KeysPurged    int    `json:"keys_purged"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
