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

//go:build unix

package fsutil

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// IsDirPrivateToUser reports whether path is a directory owned by the
// current user with no group or world access bits. A keyring directory
// that fails this check must not be trusted to hold secrets. A missing
// directory returns an os.IsNotExist error, which callers may treat as
// "nothing to check yet".
func IsDirPrivateToUser(path string) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return &os.PathError{Op: "stat", Path: path, Err: err}
	}

	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return fmt.Errorf("%w: %s is not a directory", ErrNotPrivate, path)
	}

	uid := os.Getuid()
	if int(st.Uid) != uid {
		return fmt.Errorf("%w: %s is owned by uid %d, not uid %d",
			ErrNotPrivate, path, st.Uid, uid)
	}

	if st.Mode&0o077 != 0 {
		return fmt.Errorf("%w: %s has group or world permissions %04o",
			ErrNotPrivate, path, st.Mode&0o777)
	}

	return nil
}
