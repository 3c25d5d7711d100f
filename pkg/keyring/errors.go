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

import "errors"

var (
	// ErrInvalidContext is returned when a context string is empty,
	// contains non-ASCII bytes, path separators or dots. It is distinct
	// from I/O failures so callers can reject bad input up front.
	ErrInvalidContext = errors.New("keyring: invalid context")

	// ErrLockFailed is returned when the advisory lock could not be
	// acquired, even after assuming the existing lock file was stale.
	// This is recoverable: the keyring remains usable read-only and the
	// caller may retry the mutating operation later.
	ErrLockFailed = errors.New("keyring: unable to lock keyring file")

	// ErrNoEligibleKey is returned when no sufficiently recent key exists
	// even after a reload that minted a fresh one. It indicates the
	// randomness or storage subsystem is unusable, not a transient
	// condition.
	ErrNoEligibleKey = errors.New("keyring: no recent-enough key and unable to create one")

	// ErrClosed is returned when a keyring is used after its last
	// reference was released.
	ErrClosed = errors.New("keyring: closed")

	// ErrDirNotPrivate is returned when the keyring directory exists but
	// is owned by another user or carries group or world permission bits.
	// Secrets must never be read from or written to such a directory.
	ErrDirNotPrivate = errors.New("keyring: keyring directory is not private to user")
)
