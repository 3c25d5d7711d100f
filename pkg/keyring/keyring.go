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
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jeremyhahn/go-keyring/pkg/fsutil"
	"github.com/jeremyhahn/go-keyring/pkg/logging"
	"github.com/jeremyhahn/go-keyring/pkg/user"
)

// Keyring is a persistent store of rotating authentication cookies shared
// between local processes through a private file under one user's home
// directory. All cross-process coordination happens via the filesystem:
// readers never lock, writers hold the advisory lock for the duration of
// one read-modify-write cycle, and every write replaces the file
// atomically.
//
// A Keyring is safe for concurrent use within one process. Handles are
// shared by reference counting: Ref adds an owner, Close drops one, and
// the last Close wipes the loaded key material.
type Keyring struct {
	mu      sync.RWMutex
	keys    []Key
	refs    int
	writeMu sync.Mutex

	username string
	context  string
	dir      string
	path     string
	lock     advisoryLock

	// Timing windows in whole seconds, matching the on-disk format.
	newKeyTimeout     int64
	expireKeysTimeout int64
	maxTimeTravel     int64

	rand  io.Reader
	clock func() time.Time
	log   logging.Logger
}

// New constructs a keyring for cfg.Context in cfg.User's home directory
// (the current user when empty). The context is validated here regardless
// of what the caller did. The keyring directory is created best-effort
// with mode 0700 and then required to be private to the user; an initial
// non-mutating load populates the key set, and failure of that load is
// tolerated because an empty keyring heals itself on first write.
func New(cfg *Config) (*Keyring, error) {
	if cfg == nil {
		return nil, fmt.Errorf("keyring: config cannot be nil")
	}
	c := cfg.withDefaults()

	if err := ValidateContext(c.Context); err != nil {
		return nil, err
	}

	username := c.User
	if username == "" {
		var err error
		if username, err = user.Current(); err != nil {
			return nil, fmt.Errorf("keyring: failed to resolve current user: %w", err)
		}
	}

	var dir, path, lockPath string
	if c.Dir != "" {
		dir = c.Dir
		path = filepath.Join(dir, c.Context)
		lockPath = path + lockSuffix
	} else {
		home, err := user.HomeDir(c.User)
		if err != nil {
			return nil, fmt.Errorf("keyring: failed to resolve home directory for %q: %w",
				username, err)
		}
		dir, path, lockPath = resolvePaths(home, c.Context)
	}

	k := &Keyring{
		refs:     1,
		username: username,
		context:  c.Context,
		dir:      dir,
		path:     path,
		lock: advisoryLock{
			path:     lockPath,
			retries:  c.LockRetries,
			interval: c.LockRetryInterval,
			log:      c.Logger,
		},
		newKeyTimeout:     int64(c.NewKeyTimeout / time.Second),
		expireKeysTimeout: int64(c.ExpireKeysTimeout / time.Second),
		maxTimeTravel:     int64(c.MaxTimeTravel / time.Second),
		rand:              c.Rand,
		clock:             c.Clock,
		log:               c.Logger,
	}

	if err := fsutil.EnsureDir(dir, 0700); err != nil {
		k.log.Debug("failed to create keyring directory",
			logging.String("dir", dir), logging.Error(err))
	}

	if err := fsutil.IsDirPrivateToUser(dir); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %v", ErrDirNotPrivate, err)
		}
		// No directory yet; the keyring stays empty until a writer
		// creates it.
	}

	if err := k.reload(false, false); err != nil {
		k.log.Debug("initial keyring load failed",
			logging.String("path", path), logging.Error(err))
	}

	return k, nil
}

// BestKeyID returns the ID of a key fresh enough to issue a new
// authentication challenge. When no loaded key qualifies it performs one
// mutating reload that mints and persists a fresh key, then scans again.
// Only the ID crosses this boundary; the challenge layer fetches secret
// bytes separately via KeyByID.
func (k *Keyring) BestKeyID() (int32, error) {
	if err := k.ensureOpen(); err != nil {
		return 0, err
	}

	if id, ok := k.findRecentKey(); ok {
		return id, nil
	}

	if err := k.reload(true, true); err != nil {
		return 0, err
	}

	if id, ok := k.findRecentKey(); ok {
		return id, nil
	}
	return 0, ErrNoEligibleKey
}

// findRecentKey scans in file order and returns the first key newer than
// the freshness window. Any sufficiently fresh key is interchangeable for
// issuing a challenge, so there is no search for the newest.
func (k *Keyring) findRecentKey() (int32, bool) {
	now := k.clock().Unix()

	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, key := range k.keys {
		if key.CreatedAt > now-k.newKeyTimeout {
			return key.ID, true
		}
	}
	return 0, false
}

// KeyByID returns a copy of the key with the given ID from the currently
// loaded set. It does not consult the file; callers wanting a fresh view
// call Reload first. The boolean reports whether the key was found.
func (k *Keyring) KeyByID(id int32) (Key, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.refs == 0 {
		return Key{}, false
	}
	for _, key := range k.keys {
		if key.ID == id {
			return key.clone(), true
		}
	}
	return Key{}, false
}

// Keys returns copies of the currently loaded keys in file order.
func (k *Keyring) Keys() []Key {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]Key, len(k.keys))
	for i, key := range k.keys {
		out[i] = key.clone()
	}
	return out
}

// Reload re-reads the key file without taking the lock or writing.
// Expired keys disappear from the in-memory view; the file is untouched.
func (k *Keyring) Reload() error {
	if err := k.ensureOpen(); err != nil {
		return err
	}
	return k.reload(false, false)
}

// Purge rewrites the key file under the advisory lock, keeping only keys
// that pass the expiry window, and returns how many remain. It is the
// maintenance counterpart of the implicit filtering every reload applies
// in memory.
func (k *Keyring) Purge() (int, error) {
	if err := k.ensureOpen(); err != nil {
		return 0, err
	}
	if err := k.reload(false, true); err != nil {
		return 0, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys), nil
}

// reload rebuilds the in-memory key list from disk. When rewrite is set
// the surviving set is written back atomically under the advisory lock,
// and when addNew is also set a freshly minted key is appended before the
// write. The committed list is replaced only after every step succeeds;
// any failure leaves the previous keys in place.
func (k *Keyring) reload(addNew, rewrite bool) error {
	now := k.clock().Unix()

	if rewrite {
		k.writeMu.Lock()
		defer k.writeMu.Unlock()

		if err := k.lock.acquire(); err != nil {
			return err
		}
		defer k.lock.release()
	}

	data, err := os.ReadFile(k.path)
	if err != nil {
		if !os.IsNotExist(err) {
			k.log.Debug("keyring file unreadable, treating as empty",
				logging.String("path", k.path), logging.Error(err))
		}
		data = nil
	}

	window := expiryWindow{
		now:       now,
		maxFuture: k.maxTimeTravel,
		maxAge:    k.expireKeysTimeout,
	}
	keys, stats := decodeKeys(data, window, k.log)
	if stats.malformed > 0 || stats.expired > 0 {
		k.log.Debug("keyring load absorbed bad or stale records",
			logging.String("context", k.context),
			logging.Int("loaded", stats.loaded),
			logging.Int("malformed", stats.malformed),
			logging.Int("expired", stats.expired))
	}

	if addNew {
		key, err := k.mintKey(now, keys)
		if err != nil {
			return err
		}
		keys = append(keys, key)
		k.log.Debug("minted new cookie",
			logging.String("context", k.context),
			logging.Int32("key_id", key.ID))
	}

	if rewrite {
		if err := fsutil.WriteFileAtomic(k.path, encodeKeys(keys), 0600); err != nil {
			return fmt.Errorf("keyring: failed to save %s: %w", k.path, err)
		}
	}

	k.mu.Lock()
	k.keys = keys
	k.mu.Unlock()
	return nil
}

// mintKey draws a collision-free non-negative ID and a fresh secret.
// Negative draws are negated; math.MinInt32 survives negation and is
// redrawn, as is any ID already present in the batch.
func (k *Keyring) mintKey(now int64, existing []Key) (Key, error) {
	var idBytes [4]byte
	for {
		if _, err := io.ReadFull(k.rand, idBytes[:]); err != nil {
			return Key{}, fmt.Errorf("keyring: failed to read random key id: %w", err)
		}
		id := int32(binary.LittleEndian.Uint32(idBytes[:]))
		if id < 0 {
			id = -id
		}
		if id < 0 || hasKeyID(existing, id) {
			continue
		}

		secret := make([]byte, SecretLength)
		if _, err := io.ReadFull(k.rand, secret); err != nil {
			return Key{}, fmt.Errorf("keyring: failed to read random secret: %w", err)
		}
		return Key{ID: id, CreatedAt: now, Secret: secret}, nil
	}
}

func hasKeyID(keys []Key, id int32) bool {
	for _, key := range keys {
		if key.ID == id {
			return true
		}
	}
	return false
}

// Ref adds a reference and returns k so handles can be passed between
// components with explicit shared ownership.
func (k *Keyring) Ref() *Keyring {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.refs > 0 {
		k.refs++
	}
	return k
}

// Close drops one reference. The last Close wipes the loaded secrets and
// renders the handle unusable; further operations return ErrClosed.
func (k *Keyring) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.refs == 0 {
		return ErrClosed
	}
	k.refs--
	if k.refs == 0 {
		for i := range k.keys {
			k.keys[i].wipe()
		}
		k.keys = nil
	}
	return nil
}

func (k *Keyring) ensureOpen() error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.refs == 0 {
		return ErrClosed
	}
	return nil
}

// Context returns the validated context string this keyring serves.
func (k *Keyring) Context() string { return k.context }

// User returns the account whose home directory holds the keyring.
func (k *Keyring) User() string { return k.username }

// IsForUser reports whether the keyring belongs to username.
func (k *Keyring) IsForUser(username string) bool { return k.username == username }

// Dir returns the keyring directory.
func (k *Keyring) Dir() string { return k.dir }

// Path returns the key file path.
func (k *Keyring) Path() string { return k.path }

// LockPath returns the advisory lock file path.
func (k *Keyring) LockPath() string { return k.lock.path }
