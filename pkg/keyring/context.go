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
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jeremyhahn/go-keyring/pkg/user"
)

// DefaultContext is the context cookie authentication uses when the
// client names none.
const DefaultContext = "org_freedesktop_general"

const (
	// keyringDirName is the per-user directory holding one key file per
	// context.
	keyringDirName = ".dbus-keyrings"

	// lockSuffix names the advisory lock file next to each key file.
	lockSuffix = ".lock"
)

// ValidateContext reports whether a context string may safely name a key
// file. It rejects the empty string, any byte that is NUL or outside 7-bit
// ASCII, path separators, and dots (which would permit dotfiles, "..", and
// collisions with the lock suffix). 0x7F is within ASCII and accepted.
//
// New re-checks the context itself, so callers that already validated get
// defense in depth rather than trust.
func ValidateContext(context string) error {
	if len(context) == 0 {
		return fmt.Errorf("%w: empty string", ErrInvalidContext)
	}
	for i := 0; i < len(context); i++ {
		switch b := context[i]; {
		case b == 0 || b > 0x7F:
			return fmt.Errorf("%w: non-ASCII byte 0x%02x at offset %d",
				ErrInvalidContext, b, i)
		case b == '/':
			return fmt.Errorf("%w: contains '/'", ErrInvalidContext)
		case b == '\\':
			return fmt.Errorf("%w: contains '\\'", ErrInvalidContext)
		case b == '.':
			return fmt.Errorf("%w: contains '.'", ErrInvalidContext)
		}
	}
	return nil
}

// resolvePaths composes the keyring directory, data file and lock file
// paths for a context. All three are fixed for the life of a Keyring.
func resolvePaths(home, context string) (dir, file, lock string) {
	dir = filepath.Join(home, keyringDirName)
	file = filepath.Join(dir, context)
	lock = file + lockSuffix
	return dir, file, lock
}

// DirForUser returns the keyring directory for a user's home directory
// without touching the filesystem. An empty name selects the current
// process user.
func DirForUser(name string) (string, error) {
	home, err := user.HomeDir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, keyringDirName), nil
}

// ListContexts returns the context names present in a keyring directory,
// sorted. Lock files, subdirectories, and names that would not survive
// ValidateContext are skipped. A missing directory reads as empty, the
// same way a missing key file reads as an empty keyring.
func ListContexts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring: read directory %s: %w", dir, err)
	}

	var contexts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == lockSuffix {
			continue
		}
		if ValidateContext(name) != nil {
			continue
		}
		contexts = append(contexts, name)
	}
	sort.Strings(contexts)
	return contexts, nil
}
