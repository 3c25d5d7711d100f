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
	"time"

	"github.com/jeremyhahn/go-keyring/pkg/fsutil"
	"github.com/jeremyhahn/go-keyring/pkg/logging"
)

// advisoryLock serializes cooperating writers of one key file through an
// exclusive-create marker file. Exclusive create is the only exclusion
// primitive that behaves across the network filesystems home directories
// live on, which makes this best-effort by construction: a writer that
// crashes leaves the marker behind, and a contender that waits out the
// retry budget takes the lock over without proof the holder is gone. The
// worst outcome of that race is a duplicated key generation, never secret
// disclosure, and the design accepts it.
type advisoryLock struct {
	path     string
	retries  int
	interval time.Duration
	log      logging.Logger
}

// acquire claims the lock, sleeping interval between attempts. After
// retries consecutive failures the existing marker is presumed stale,
// deleted, and claimed with one final exclusive create. Failure of that
// last attempt is the only way acquire fails.
func (l *advisoryLock) acquire() error {
	timeouts := 0
	for timeouts < l.retries {
		if err := fsutil.CreateExclusive(l.path); err == nil {
			return nil
		}
		l.log.Debug("keyring lock busy, retrying",
			logging.String("lock", l.path),
			logging.Int("attempt", timeouts+1))
		time.Sleep(l.interval)
		timeouts++
	}

	l.log.Warn("breaking apparently stale keyring lock",
		logging.String("lock", l.path))
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.log.Debug("failed to remove stale lock",
			logging.String("lock", l.path), logging.Error(err))
	}

	if err := fsutil.CreateExclusive(l.path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLockFailed, l.path, err)
	}
	return nil
}

// release deletes the marker. The mutation it guarded has already been
// completed by the time release runs, so a failed delete only delays the
// next writer; it is logged and never escalated.
func (l *advisoryLock) release() {
	if err := os.Remove(l.path); err != nil {
		l.log.Warn("failed to delete keyring lock",
			logging.String("lock", l.path), logging.Error(err))
	}
}
