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

package keyring

// Key is a single cookie record: a rotating shared secret identified by a
// small integer. Peers reference cookies by ID during the challenge
// exchange, so IDs are unique within one keyring at any point in time.
type Key struct {
	// ID is non-negative and unique within the keyring.
	ID int32

	// CreatedAt is the generation time in seconds since the Unix epoch.
	// It is recorded once and never updated.
	CreatedAt int64

	// Secret holds the raw cookie bytes; 24 bytes for keys minted here,
	// arbitrary length for keys read from disk.
	Secret []byte
}

// clone returns a deep copy. Key material never leaves the keyring by
// reference.
func (k Key) clone() Key {
	secret := make([]byte, len(k.Secret))
	copy(secret, k.Secret)
	return Key{ID: k.ID, CreatedAt: k.CreatedAt, Secret: secret}
}

// wipe zeroes the secret in place.
func (k *Key) wipe() {
	for i := range k.Secret {
		k.Secret[i] = 0
	}
}
