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

// Package user resolves local account names and home directories. The
// keyring lives under a user's home, so path construction funnels through
// here rather than reading environment variables ad hoc.
package user

import (
	"fmt"
	"os"
	osuser "os/user"

	homedir "github.com/mitchellh/go-homedir"
)

// Current returns the username of the process owner. It falls back to the
// USER and LOGNAME environment variables when the account database is not
// available (static binaries without cgo, minimal containers).
func Current() (string, error) {
	if u, err := osuser.Current(); err == nil && u.Username != "" {
		return u.Username, nil
	}
	for _, env := range []string{"USER", "LOGNAME"} {
		if name := os.Getenv(env); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: cannot determine current user", ErrUnknownUser)
}

// HomeDir returns the home directory for username. An empty username
// selects the current process user, resolved without requiring cgo.
func HomeDir(username string) (string, error) {
	if username == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoHome, err)
		}
		return home, nil
	}

	u, err := osuser.Lookup(username)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnknownUser, username, err)
	}
	if u.HomeDir == "" {
		return "", fmt.Errorf("%w: account %q has no home directory", ErrNoHome, username)
	}
	return u.HomeDir, nil
}
