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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeremyhahn/go-keyring/pkg/logging"
)

// recordingLogger captures log calls so tests can assert on absorbed
// failures without scraping stderr.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) Debug(msg string, fields ...logging.Field) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, fields ...logging.Field)  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, fields ...logging.Field)  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, fields ...logging.Field) { l.record("error", msg) }
func (l *recordingLogger) Fatal(msg string, fields ...logging.Field) { l.record("fatal", msg) }

func (l *recordingLogger) With(fields ...logging.Field) logging.Logger { return l }
func (l *recordingLogger) WithError(err error) logging.Logger          { return l }

// has reports whether a message at the given level containing substr was
// logged.
func (l *recordingLogger) has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && strings.Contains(e.msg, substr) {
			return true
		}
	}
	return false
}

// scriptedRand replays a fixed byte script, then keeps producing a
// non-zero fill byte so secret draws always succeed. Deterministic ID
// draws make collision handling testable.
type scriptedRand struct {
	mu     sync.Mutex
	script []byte
	pos    int
}

func (r *scriptedRand) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range p {
		if r.pos < len(r.script) {
			p[i] = r.script[r.pos]
			r.pos++
		} else {
			p[i] = 0x5a
		}
	}
	return len(p), nil
}

// leID encodes an ID draw the way mintKey reads it: little-endian uint32.
func leID(id uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], id)
	return b[:]
}

// clockAt pins the keyring clock to a fixed instant.
func clockAt(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

// newTestKeyring builds a keyring over a private temp directory with fast
// lock retries. Callers adjust cfg before construction via mutate.
func newTestKeyring(t *testing.T, mutate func(*Config)) (*Keyring, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "keyrings")
	if err := os.Mkdir(dir, 0700); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	cfg := &Config{
		Context:           "org_freedesktop_general",
		User:              "tester",
		Dir:               dir,
		LockRetries:       3,
		LockRetryInterval: time.Millisecond,
		Logger:            &recordingLogger{},
	}
	if mutate != nil {
		mutate(cfg)
	}

	kr, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = kr.Close() })

	return kr, dir
}

// writeKeyFile writes raw lines to the context file inside dir.
func writeKeyFile(t *testing.T, dir, context string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, context)
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// keyLine formats one on-disk record.
func keyLine(id int32, ts int64, hexSecret string) string {
	return fmt.Sprintf("%d %d %s", id, ts, hexSecret)
}
