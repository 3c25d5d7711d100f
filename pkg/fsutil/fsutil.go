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

// Package fsutil provides the file primitives the keyring builds on:
// atomic whole-file replacement, exclusive marker creation for advisory
// locks, and the directory privacy check. All of them assume a local or
// POSIX-ish network filesystem; none of them require anything stronger
// than create, rename and unlink.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotPrivate is returned by IsDirPrivateToUser when a directory is
// readable or writable by anyone other than its owner, or owned by a
// different user.
var ErrNotPrivate = errors.New("fsutil: directory not private to user")

// WriteFileAtomic writes data to path so that a concurrent reader either
// sees the previous content or the new content, never a partial file. The
// data is staged in a temp file in the same directory, synced, and renamed
// into place. The temp file is removed on every failure path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("fsutil: failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsutil: failed to write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsutil: failed to sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsutil: failed to close temp file: %w", err)
	}

	// CreateTemp opens 0600; widen or narrow to the requested mode before
	// the file becomes visible under its final name.
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsutil: failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsutil: failed to rename temp file to %s: %w", path, err)
	}

	return nil
}

// CreateExclusive creates a zero-byte file at path, failing if it already
// exists. The error is returned unwrapped so callers can test it with
// os.IsExist. This is the portable exclusion primitive advisory locks are
// built on; O_EXCL is honored even on most network filesystems.
func CreateExclusive(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	return f.Close()
}

// EnsureDir creates the directory and any missing parents with the given
// permissions. Existing directories are left untouched, including their
// current permissions.
func EnsureDir(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("fsutil: failed to create directory %s: %w", path, err)
	}
	return nil
}
