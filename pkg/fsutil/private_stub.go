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

//go:build !unix

package fsutil

// IsDirPrivateToUser has no meaningful mapping onto non-POSIX permission
// models, so platforms without unix stat semantics skip the check.
func IsDirPrivateToUser(path string) error {
	return nil
}
