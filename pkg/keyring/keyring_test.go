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
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNow = int64(1700000000)

// readKeyFile returns the raw content of the keyring's data file.
func readKeyFile(t *testing.T, kr *Keyring) []byte {
	t.Helper()
	data, err := os.ReadFile(kr.Path())
	require.NoError(t, err)
	return data
}

func TestBestKeyIDMintsOnEmptyKeyring(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	id, err := kr.BestKeyID()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, int32(0))

	// Exactly one record must have been written.
	lines := strings.Split(strings.TrimSuffix(string(readKeyFile(t, kr)), "\n"), "\n")
	require.Len(t, lines, 1)

	fields := strings.Fields(lines[0])
	require.Len(t, fields, 3)

	fileID, err := strconv.ParseInt(fields[0], 10, 64)
	require.NoError(t, err)
	assert.Equal(t, int64(id), fileID)
	assert.LessOrEqual(t, fileID, int64(math.MaxInt32))

	ts, err := strconv.ParseInt(fields[1], 10, 64)
	require.NoError(t, err)
	assert.Equal(t, testNow, ts)

	assert.Len(t, fields[2], SecretLength*2, "secret must be 24 hex-encoded bytes")

	keys := kr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, id, keys[0].ID)
	assert.Len(t, keys[0].Secret, SecretLength)
}

func TestBestKeyIDIsIdempotent(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	first, err := kr.BestKeyID()
	require.NoError(t, err)
	after := readKeyFile(t, kr)

	second, err := kr.BestKeyID()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, after, readKeyFile(t, kr),
		"second lookup must not write")
}

func TestBestKeyIDSelectsFreshKey(t *testing.T) {
	kr, dir := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	writeKeyFile(t, dir, kr.Context(), keyLine(11, testNow-299, "aabb"))
	require.NoError(t, kr.Reload())

	before := readKeyFile(t, kr)
	id, err := kr.BestKeyID()
	require.NoError(t, err)

	assert.Equal(t, int32(11), id, "a key 299s old is still fresh")
	assert.Equal(t, before, readKeyFile(t, kr), "selection must not write")
}

func TestBestKeyIDMintsWhenAllKeysStale(t *testing.T) {
	kr, dir := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	writeKeyFile(t, dir, kr.Context(), keyLine(12, testNow-301, "aabb"))
	require.NoError(t, kr.Reload())

	id, err := kr.BestKeyID()
	require.NoError(t, err)
	assert.NotEqual(t, int32(12), id, "a key 301s old must not be handed out")

	// The stale key is not yet expired, so the rewrite preserves it ahead
	// of the new key.
	keys := kr.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, int32(12), keys[0].ID)
	assert.Equal(t, id, keys[1].ID)

	lines := strings.Split(strings.TrimSuffix(string(readKeyFile(t, kr)), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "12 "))
}

func TestConstructionAppliesExpiryWindow(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keyrings")
	require.NoError(t, os.Mkdir(dir, 0700))

	writeKeyFile(t, dir, "org_freedesktop_general",
		keyLine(1, testNow-419, "aa"),
		keyLine(2, testNow-420, "bb"),
		keyLine(3, testNow-421, "cc"),
		keyLine(4, testNow+300, "dd"),
		keyLine(5, testNow+301, "ee"),
	)

	kr, err := New(&Config{
		Context:           "org_freedesktop_general",
		User:              "tester",
		Dir:               dir,
		LockRetries:       3,
		LockRetryInterval: time.Millisecond,
		Clock:             clockAt(testNow),
		Logger:            &recordingLogger{},
	})
	require.NoError(t, err)
	defer kr.Close()

	keys := kr.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, int32(1), keys[0].ID, "419s old survives")
	assert.Equal(t, int32(2), keys[1].ID, "exactly 420s old survives")
	assert.Equal(t, int32(4), keys[2].ID, "exactly 300s ahead survives")

	// The load was non-mutating; expired records remain on disk.
	data, err := os.ReadFile(kr.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n3 ")
}

func TestCrossInstanceConsistency(t *testing.T) {
	kr1, dir := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	writeKeyFile(t, dir, kr1.Context(),
		keyLine(101, testNow-310, "0102"),
		keyLine(102, testNow-320, "0304"),
	)
	require.NoError(t, kr1.Reload())

	minted, err := kr1.BestKeyID()
	require.NoError(t, err)

	kr2, err := New(&Config{
		Context:           kr1.Context(),
		User:              "tester",
		Dir:               dir,
		LockRetries:       3,
		LockRetryInterval: time.Millisecond,
		Clock:             clockAt(testNow),
		Logger:            &recordingLogger{},
	})
	require.NoError(t, err)
	defer kr2.Close()

	assert.Equal(t, kr1.Keys(), kr2.Keys(),
		"independent instances must agree on count, IDs, timestamps, secrets and order")

	id2, err := kr2.BestKeyID()
	require.NoError(t, err)
	assert.Equal(t, minted, id2)
}

func TestMintAvoidsIDCollision(t *testing.T) {
	kr, dir := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
		cfg.Rand = &scriptedRand{script: append(leID(77), leID(123)...)}
	})

	// A stale but unexpired key already owns ID 77, so the first draw
	// collides and must be retried.
	writeKeyFile(t, dir, kr.Context(), keyLine(77, testNow-310, "aabb"))
	require.NoError(t, kr.Reload())

	id, err := kr.BestKeyID()
	require.NoError(t, err)
	assert.Equal(t, int32(123), id)

	keys := kr.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, int32(77), keys[0].ID)
	assert.Equal(t, int32(123), keys[1].ID)
}

func TestMintNormalizesNegativeDraw(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
		// 0xffffffff is -1 as int32; negation yields 1.
		cfg.Rand = &scriptedRand{script: leID(0xffffffff)}
	})

	id, err := kr.BestKeyID()
	require.NoError(t, err)
	assert.Equal(t, int32(1), id)
}

func TestMintRedrawsMinInt32(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
		// math.MinInt32 has no positive counterpart; the draw must be
		// discarded in favor of the next one.
		cfg.Rand = &scriptedRand{script: append(leID(0x80000000), leID(9)...)}
	})

	id, err := kr.BestKeyID()
	require.NoError(t, err)
	assert.Equal(t, int32(9), id)
}

func TestKeyByID(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	id, err := kr.BestKeyID()
	require.NoError(t, err)

	key, ok := kr.KeyByID(id)
	require.True(t, ok)
	assert.Equal(t, id, key.ID)
	assert.Equal(t, testNow, key.CreatedAt)
	require.Len(t, key.Secret, SecretLength)

	// Returned secrets are copies; scribbling on one must not reach the
	// keyring's internal state.
	for i := range key.Secret {
		key.Secret[i] = 0xff
	}
	again, ok := kr.KeyByID(id)
	require.True(t, ok)
	assert.NotEqual(t, key.Secret, again.Secret)

	_, ok = kr.KeyByID(id + 1)
	assert.False(t, ok)
}

func TestKeysReturnsCopies(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	_, err := kr.BestKeyID()
	require.NoError(t, err)

	first := kr.Keys()
	require.Len(t, first, 1)
	for i := range first[0].Secret {
		first[0].Secret[i] = 0
	}

	second := kr.Keys()
	assert.NotEqual(t, first[0].Secret, second[0].Secret)
}

func TestReloadPicksUpExternalWrites(t *testing.T) {
	kr, dir := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	assert.Empty(t, kr.Keys())

	writeKeyFile(t, dir, kr.Context(), keyLine(55, testNow-5, "beef"))
	require.NoError(t, kr.Reload())

	keys := kr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, int32(55), keys[0].ID)
	assert.Equal(t, []byte{0xbe, 0xef}, keys[0].Secret)
}

func TestPurgeRewritesSurvivors(t *testing.T) {
	kr, dir := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	writeKeyFile(t, dir, kr.Context(),
		keyLine(1, testNow-500, "aa"),
		keyLine(2, testNow-10, "bb"),
	)

	remaining, err := kr.Purge()
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	data := readKeyFile(t, kr)
	assert.Equal(t, "2 "+strconv.FormatInt(testNow-10, 10)+" bb\n", string(data))

	// The lock must have been released.
	_, err = os.Stat(kr.LockPath())
	assert.True(t, os.IsNotExist(err))
}

func TestNonASCIIFileIsDiscarded(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keyrings")
	require.NoError(t, os.Mkdir(dir, 0700))

	path := filepath.Join(dir, "org_freedesktop_general")
	require.NoError(t, os.WriteFile(path, []byte("1 1700000000 aa\n\x80\xff\n"), 0600))

	log := &recordingLogger{}
	kr, err := New(&Config{
		Context:           "org_freedesktop_general",
		User:              "tester",
		Dir:               dir,
		LockRetries:       3,
		LockRetryInterval: time.Millisecond,
		Clock:             clockAt(testNow),
		Logger:            log,
	})
	require.NoError(t, err, "binary garbage must not fail construction")
	defer kr.Close()

	assert.Empty(t, kr.Keys())
	assert.True(t, log.has("warn", "non-ASCII"))

	// The first mint replaces the garbage with a valid file.
	id, err := kr.BestKeyID()
	require.NoError(t, err)
	data := readKeyFile(t, kr)
	assert.True(t, strings.HasPrefix(string(data), strconv.FormatInt(int64(id), 10)+" "))
}

func TestMissingFileIsEmptyKeyring(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})
	assert.Empty(t, kr.Keys())
}

func TestLockFailureLeavesKeysUntouched(t *testing.T) {
	kr, dir := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
		cfg.LockRetries = 2
	})

	// Stale key forces a mutating reload on lookup.
	writeKeyFile(t, dir, kr.Context(), keyLine(5, testNow-310, "abcd"))
	require.NoError(t, kr.Reload())

	// An undeletable lock marker: a directory with content defeats both
	// the stale takeover's delete and the final exclusive create.
	require.NoError(t, os.Mkdir(kr.LockPath(), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(kr.LockPath(), "x"), []byte("x"), 0600))

	_, err := kr.BestKeyID()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockFailed), "error = %v", err)

	// Recoverable: the in-memory view still serves reads.
	keys := kr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, int32(5), keys[0].ID)
}

func TestStaleLockIsBrokenByMutatingReload(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	// Simulate a crashed writer.
	require.NoError(t, os.WriteFile(kr.LockPath(), nil, 0600))

	id, err := kr.BestKeyID()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, int32(0))

	_, err = os.Stat(kr.LockPath())
	assert.True(t, os.IsNotExist(err), "lock must be released after the reload")
}

func TestCloseWipesAndBlocks(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	_, err := kr.BestKeyID()
	require.NoError(t, err)

	require.NoError(t, kr.Close())

	_, err = kr.BestKeyID()
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Empty(t, kr.Keys())
	_, ok := kr.KeyByID(1)
	assert.False(t, ok)
	assert.True(t, errors.Is(kr.Reload(), ErrClosed))
	assert.True(t, errors.Is(kr.Close(), ErrClosed))
}

func TestRefExtendsLifetime(t *testing.T) {
	kr, _ := newTestKeyring(t, func(cfg *Config) {
		cfg.Clock = clockAt(testNow)
	})

	_, err := kr.BestKeyID()
	require.NoError(t, err)

	shared := kr.Ref()
	require.NoError(t, kr.Close())

	// One reference remains; the keyring still works.
	_, err = shared.BestKeyID()
	require.NoError(t, err)

	require.NoError(t, shared.Close())
	_, err = shared.BestKeyID()
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestNewRejectsUnsafeDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission semantics required")
	}

	dir := filepath.Join(t.TempDir(), "keyrings")
	require.NoError(t, os.Mkdir(dir, 0700))
	require.NoError(t, os.Chmod(dir, 0755))

	_, err := New(&Config{
		Context: "org_freedesktop_general",
		User:    "tester",
		Dir:     dir,
		Logger:  &recordingLogger{},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDirNotPrivate), "error = %v", err)
}

func TestNewResolvesHomeDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.Reset()
	t.Cleanup(homedir.Reset)

	kr, err := New(&Config{
		Context:           "org_freedesktop_general",
		LockRetries:       3,
		LockRetryInterval: time.Millisecond,
		Clock:             clockAt(testNow),
		Logger:            &recordingLogger{},
	})
	require.NoError(t, err)
	defer kr.Close()

	assert.Equal(t, filepath.Join(home, ".dbus-keyrings"), kr.Dir())

	info, err := os.Stat(kr.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}

	_, err = kr.BestKeyID()
	require.NoError(t, err)
}
