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

import (
	"io"
	"time"

	"github.com/jeremyhahn/go-keyring/pkg/crypto/rand"
	"github.com/jeremyhahn/go-keyring/pkg/logging"
)

const (
	// SecretLength is the byte length of freshly minted cookie secrets.
	// Keys read from disk may carry secrets of any length.
	SecretLength = 24

	// DefaultNewKeyTimeout bounds how old a key may be and still be
	// handed out for issuing new challenges.
	DefaultNewKeyTimeout = 300 * time.Second

	// DefaultExpireKeysTimeout bounds how old a key may be before a
	// reload drops it. It exceeds DefaultNewKeyTimeout so a key that was
	// "best" moments ago stays resolvable while a peer finishes its
	// handshake.
	DefaultExpireKeysTimeout = 420 * time.Second

	// DefaultMaxTimeTravel bounds how far in the future a stored creation
	// time may lie before the key is treated as clock garbage.
	DefaultMaxTimeTravel = 300 * time.Second

	// DefaultLockRetries is the number of exclusive-create attempts made
	// before an existing lock file is presumed stale.
	DefaultLockRetries = 32

	// DefaultLockRetryInterval is the sleep between lock attempts. With
	// DefaultLockRetries this puts the staleness threshold near 8
	// seconds.
	DefaultLockRetryInterval = 250 * time.Millisecond
)

// Config parameterizes a Keyring. The zero value of every optional field
// selects the production default; only Context is required. The timing
// windows exist as configuration for test harnesses and embedders with
// unusual filesystems, not as ambient tuning knobs, and they operate at
// whole-second granularity because the on-disk format stores seconds.
type Config struct {
	// Context selects the key file within the keyring directory. It must
	// satisfy ValidateContext.
	Context string

	// User selects whose home directory holds the keyring. Empty selects
	// the current process user.
	User string

	// Dir overrides the derived <home>/.dbus-keyrings directory.
	// Inspection tools and tests point this at alternate locations;
	// production callers leave it empty.
	Dir string

	// NewKeyTimeout is the freshness window for best-key selection.
	NewKeyTimeout time.Duration

	// ExpireKeysTimeout is the age beyond which keys are dropped on load.
	ExpireKeysTimeout time.Duration

	// MaxTimeTravel is the tolerated future skew for stored timestamps.
	MaxTimeTravel time.Duration

	// LockRetries and LockRetryInterval tune the advisory lock loop.
	LockRetries       int
	LockRetryInterval time.Duration

	// Rand supplies random bytes for key IDs and secrets. Defaults to
	// the platform CSPRNG via rand.Software.
	Rand io.Reader

	// Clock returns the current time. Tests substitute fixed clocks to
	// pin expiry boundaries. Defaults to time.Now.
	Clock func() time.Time

	// Logger receives the diagnostics this package absorbs instead of
	// returning: skipped lines, discarded files, stale lock takeovers.
	// Defaults to a stderr logger at warn level.
	Logger logging.Logger
}

// withDefaults returns a copy of c with every unset field resolved.
func (c *Config) withDefaults() Config {
	out := *c
	if out.NewKeyTimeout <= 0 {
		out.NewKeyTimeout = DefaultNewKeyTimeout
	}
	if out.ExpireKeysTimeout <= 0 {
		out.ExpireKeysTimeout = DefaultExpireKeysTimeout
	}
	if out.MaxTimeTravel <= 0 {
		out.MaxTimeTravel = DefaultMaxTimeTravel
	}
	if out.LockRetries <= 0 {
		out.LockRetries = DefaultLockRetries
	}
	if out.LockRetryInterval <= 0 {
		out.LockRetryInterval = DefaultLockRetryInterval
	}
	if out.Rand == nil {
		out.Rand = rand.Software()
	}
	if out.Clock == nil {
		out.Clock = time.Now
	}
	if out.Logger == nil {
		out.Logger = logging.Default()
	}
	return out
}
