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
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestIsDirPrivateToUser(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keyrings")
	if err := os.Mkdir(dir, 0700); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	if err := IsDirPrivateToUser(dir); err != nil {
		t.Errorf("IsDirPrivateToUser(0700 dir) error = %v", err)
	}
}

func TestIsDirPrivateToUserGroupReadable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keyrings")
	if err := os.Mkdir(dir, 0750); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	// Mkdir applies umask; force the mode we want to test.
	if err := os.Chmod(dir, 0750); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}

	err := IsDirPrivateToUser(dir)
	if err == nil {
		t.Fatal("IsDirPrivateToUser(0750 dir) expected error")
	}
	if !errors.Is(err, ErrNotPrivate) {
		t.Errorf("error = %v, want ErrNotPrivate", err)
	}
}

func TestIsDirPrivateToUserWorldWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keyrings")
	if err := os.Mkdir(dir, 0700); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	if err := os.Chmod(dir, 0707); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}

	if err := IsDirPrivateToUser(dir); !errors.Is(err, ErrNotPrivate) {
		t.Errorf("error = %v, want ErrNotPrivate", err)
	}
}

func TestIsDirPrivateToUserMissing(t *testing.T) {
	err := IsDirPrivateToUser(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("IsDirPrivateToUser(missing) expected error")
	}
	if !os.IsNotExist(err) {
		t.Errorf("error = %v, want os.IsNotExist", err)
	}
	if errors.Is(err, ErrNotPrivate) {
		t.Errorf("missing directory must not map to ErrNotPrivate")
	}
}

func TestIsDirPrivateToUserRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := IsDirPrivateToUser(path); !errors.Is(err, ErrNotPrivate) {
		t.Errorf("error = %v, want ErrNotPrivate", err)
	}
}
