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

package user

import "errors"

var (
	// ErrUnknownUser is returned when a username cannot be resolved to a
	// local account.
	ErrUnknownUser = errors.New("user: unknown user")

	// ErrNoHome is returned when an account exists but no home directory
	// can be determined for it.
	ErrNoHome = errors.New("user: no home directory")
)
