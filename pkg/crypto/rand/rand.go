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

// Package rand provides the random byte source backing cookie IDs and
// secrets.
//
// # Overview
//
// Every key the keyring mints draws from a Source: 4 bytes for the key ID
// and 24 bytes for the secret. The default Software source reads from
// crypto/rand, the platform CSPRNG. The interface exists so embedding
// applications can substitute their own entropy source (hardware RNG,
// audited DRBG) and so tests can inject deterministic bytes to exercise
// ID-collision handling.
//
// A Source is also an io.Reader, which keeps it compatible with any API
// that accepts the crypto/rand.Reader convention:
//
//	import "github.com/jeremyhahn/go-keyring/pkg/crypto/rand"
//
//	src := rand.Software()
//	secret, _ := src.Rand(24)
//
// Sources must be safe for concurrent use. Software is stateless and
// trivially satisfies this.
package rand

import (
	crand "crypto/rand"
	"fmt"
	"io"
)

// Source produces cryptographically strong random bytes.
type Source interface {
	io.Reader

	// Rand returns n random bytes or an error if the underlying entropy
	// source fails. Partial reads are never returned.
	Rand(n int) ([]byte, error)
}

// softwareSource reads from the operating system CSPRNG via crypto/rand.
type softwareSource struct{}

// Software returns the crypto/rand backed Source.
func Software() Source {
	return softwareSource{}
}

// Rand returns n random bytes from the platform CSPRNG.
func (softwareSource) Rand(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("rand: invalid byte count %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(crand.Reader, buf); err != nil {
		return nil, fmt.Errorf("rand: failed to read random bytes: %w", err)
	}
	return buf, nil
}

// Read implements io.Reader. It never returns a short read without an
// error.
func (softwareSource) Read(p []byte) (int, error) {
	return io.ReadFull(crand.Reader, p)
}
