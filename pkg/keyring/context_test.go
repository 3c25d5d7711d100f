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
	"errors"
	"os"
	"path/filepath"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		name    string
		context string
		valid   bool
	}{
		{"simple word", "foo", true},
		{"underscored namespace", "org_freedesktop_blah", true},
		{"trailing DEL byte", "foo\x7f", true},
		{"digits and dashes", "session-42", true},
		{"empty", "", false},
		{"leading dot", ".foo", false},
		{"inner dot", "bar.foo", false},
		{"forward slash", "bar/foo", false},
		{"backslash", "bar\\foo", false},
		{"high byte 0x80", "foo\x80", false},
		{"high byte 0xfa", "foo\xfa\xf0", false},
		{"embedded NUL", "foo\x00bar", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContext(tt.context)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidContext),
				"error %v must wrap ErrInvalidContext", err)
		})
	}
}

func TestNewRejectsInvalidContext(t *testing.T) {
	// Construction re-validates even when callers claim they already did.
	_, err := New(&Config{Context: "bar.foo", Dir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidContext))
}

func TestResolvePaths(t *testing.T) {
	dir, file, lock := resolvePaths("/home/alice", "org_freedesktop_general")

	assert.Equal(t, filepath.Join("/home/alice", ".dbus-keyrings"), dir)
	assert.Equal(t, filepath.Join(dir, "org_freedesktop_general"), file)
	assert.Equal(t, file+".lock", lock)
}

func TestListContexts(t *testing.T) {
	dir := t.TempDir()

	writeKeyFile(t, dir, "org_freedesktop_general", keyLine(1, 1700000000, "aa"))
	writeKeyFile(t, dir, "session_bus", keyLine(2, 1700000000, "bb"))
	writeKeyFile(t, dir, "session_bus.lock")
	writeKeyFile(t, dir, ".hidden")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0700))

	contexts, err := ListContexts(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"org_freedesktop_general", "session_bus"}, contexts)
}

func TestListContextsMissingDir(t *testing.T) {
	contexts, err := ListContexts(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, contexts)
}

func TestDirForUser(t *testing.T) {
	home := t.TempDir()
	homedir.Reset()
	t.Cleanup(homedir.Reset)
	t.Setenv("HOME", home)

	dir, err := DirForUser("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".dbus-keyrings"), dir)
}

func TestKeyringPathAccessors(t *testing.T) {
	kr, dir := newTestKeyring(t, nil)

	assert.Equal(t, dir, kr.Dir())
	assert.Equal(t, filepath.Join(dir, "org_freedesktop_general"), kr.Path())
	assert.Equal(t, kr.Path()+".lock", kr.LockPath())
	assert.Equal(t, "org_freedesktop_general", kr.Context())
}

func TestIsForUser(t *testing.T) {
	kr, _ := newTestKeyring(t, nil)

	assert.True(t, kr.IsForUser("tester"))
	assert.False(t, kr.IsForUser("mallory"))
	assert.Equal(t, "tester", kr.User())
}
