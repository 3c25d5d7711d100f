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
	"time"
)

func testLock(t *testing.T, dir string) (*advisoryLock, *recordingLogger) {
	t.Helper()
	log := &recordingLogger{}
	return &advisoryLock{
		path:     filepath.Join(dir, "cookies.lock"),
		retries:  3,
		interval: time.Millisecond,
		log:      log,
	}, log
}

func TestLockAcquireRelease(t *testing.T) {
	lock, _ := testLock(t, t.TempDir())

	if err := lock.acquire(); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}

	info, err := os.Stat(lock.path)
	if err != nil {
		t.Fatalf("lock file missing after acquire: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("lock file size = %d, want 0", info.Size())
	}

	lock.release()

	if _, err := os.Stat(lock.path); !os.IsNotExist(err) {
		t.Errorf("lock file still present after release: %v", err)
	}
}

func TestLockStaleTakeover(t *testing.T) {
	lock, log := testLock(t, t.TempDir())

	// A crashed holder left its marker behind.
	if err := os.WriteFile(lock.path, nil, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	start := time.Now()
	if err := lock.acquire(); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed < 3*time.Millisecond {
		t.Errorf("takeover happened after %v, before the retry budget elapsed", elapsed)
	}
	if !log.has("warn", "stale") {
		t.Error("stale takeover was not logged at warn level")
	}
	if _, err := os.Stat(lock.path); err != nil {
		t.Errorf("lock file missing after takeover: %v", err)
	}

	lock.release()
}

func TestLockReacquireAfterRelease(t *testing.T) {
	lock, log := testLock(t, t.TempDir())

	for i := 0; i < 3; i++ {
		if err := lock.acquire(); err != nil {
			t.Fatalf("acquire() #%d error = %v", i, err)
		}
		lock.release()
	}

	if log.has("warn", "stale") {
		t.Error("uncontended acquire cycles must not break locks")
	}
}

func TestLockAcquireFailure(t *testing.T) {
	log := &recordingLogger{}
	lock := &advisoryLock{
		// Parent directory does not exist, so every create attempt and
		// the takeover both fail.
		path:     filepath.Join(t.TempDir(), "missing", "cookies.lock"),
		retries:  2,
		interval: time.Millisecond,
		log:      log,
	}

	err := lock.acquire()
	if err == nil {
		t.Fatal("acquire() expected error")
	}
	if !errors.Is(err, ErrLockFailed) {
		t.Errorf("error = %v, want ErrLockFailed", err)
	}
}

func TestLockReleaseMissingFileLogsWarning(t *testing.T) {
	lock, log := testLock(t, t.TempDir())

	// Nothing was acquired; the delete fails and must only be logged.
	lock.release()

	if !log.has("warn", "failed to delete keyring lock") {
		t.Error("failed release was not logged at warn level")
	}
}
