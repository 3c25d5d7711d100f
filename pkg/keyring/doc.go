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

// Package keyring implements a persistent store of rotating shared-secret
// cookies for filesystem-based peer authentication, compatible with the
// D-Bus cookie keyring layout under ~/.dbus-keyrings.
//
// # Overview
//
// Two processes running as the same user authenticate each other by
// proving they can both read a private file: the server picks a fresh
// cookie from the keyring and sends its ID with a challenge, the client
// looks the same cookie up by ID in the same file and answers. The
// keyring's job is everything around that file: minting cookies with
// collision-free IDs, expiring old ones, rewriting the file atomically,
// and holding a best-effort advisory lock so concurrent writers on
// unreliable network filesystems do not shred each other's updates.
//
// # Key Concepts
//
// Context: an application-chosen namespace naming one key file inside the
// keyring directory. Contexts are constrained to dot-free 7-bit ASCII so
// they cannot escape the directory or collide with lock markers.
//
// Best key: any key newer than the freshness window (300 seconds by
// default). Servers request one per challenge; when none exists the
// keyring locks, reloads, mints, and persists a new key in one cycle.
//
// Expiry: keys older than 420 seconds, or timestamped further than 300
// seconds into the future, are dropped on every load. Readers tolerate
// malformed lines by skipping them and treat a file containing non-ASCII
// bytes as empty rather than attempting to interpret it.
//
// # Basic Usage
//
//	kr, err := keyring.New(&keyring.Config{
//	    Context: "org_freedesktop_general",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer kr.Close()
//
//	id, err := kr.BestKeyID()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	key, ok := kr.KeyByID(id)
//	if ok {
//	    // feed key.Secret into the challenge/response computation
//	}
//
// The challenge/response hashing itself is out of scope; this package
// only guarantees both sides resolve the same ID to the same bytes.
//
// # Concurrency
//
// One Keyring handle may be shared across goroutines. Across processes,
// writers serialize through an exclusive-create lock file with a bounded
// retry loop and stale takeover; readers never lock and rely on atomic
// file replacement for a consistent view. The lock is advisory and
// intentionally weaker than true mutual exclusion; see the advisoryLock
// documentation for the tolerated races.
package keyring
