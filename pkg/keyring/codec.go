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
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-keyring/pkg/logging"
)

// expiryWindow carries the admission bounds applied to every key during
// decode. All values are seconds since the Unix epoch.
type expiryWindow struct {
	now       int64
	maxFuture int64
	maxAge    int64
}

// admits reports whether a stored creation time is plausible: not
// negative, not further ahead of now than the time-travel bound, not
// further behind than the expiry bound. Both bounds are exclusive, so a
// key exactly at the limit survives.
func (w expiryWindow) admits(ts int64) bool {
	if ts < 0 {
		return false
	}
	if ts > w.now+w.maxFuture {
		return false
	}
	if ts < w.now-w.maxAge {
		return false
	}
	return true
}

// decodeStats summarizes what one decode pass absorbed. The counts feed
// debug logs and daemon metrics; none of them ever becomes an error.
type decodeStats struct {
	loaded    int
	malformed int
	expired   int
	discarded bool
}

// decodeKeys parses the on-disk key file: one "<id> <creation_time>
// <hex-secret>" record per line. Decoding is maximally tolerant. A file
// containing any non-ASCII byte is discarded whole rather than
// interpreted, and individual lines that fail to parse are skipped so a
// corrupted record cannot deny service to the rest of the file. The
// expiry window is applied to every surviving line, so expired keys are
// dropped on each load whether or not the file will be rewritten. Key
// order follows file order.
func decodeKeys(data []byte, window expiryWindow, log logging.Logger) ([]Key, decodeStats) {
	var stats decodeStats
	if len(data) == 0 {
		return nil, stats
	}

	if !isASCII(data) {
		log.Warn("ignoring keyring file with non-ASCII content")
		stats.discarded = true
		return nil, stats
	}

	var keys []Key
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			stats.malformed++
			log.Debug("skipping keyring line with wrong field count",
				logging.Int("fields", len(fields)))
			continue
		}

		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil || id < 0 || id > math.MaxInt32 {
			stats.malformed++
			log.Debug("skipping keyring line with unusable key id")
			continue
		}

		ts, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			stats.malformed++
			log.Debug("skipping keyring line with unusable timestamp")
			continue
		}

		if !window.admits(ts) {
			stats.expired++
			continue
		}

		secret, err := hex.DecodeString(fields[2])
		if err != nil {
			stats.malformed++
			log.Debug("skipping keyring line with invalid hex secret")
			continue
		}

		keys = append(keys, Key{ID: int32(id), CreatedAt: ts, Secret: secret})
	}

	stats.loaded = len(keys)
	return keys, stats
}

// encodeKeys serializes keys in their current order. The output replaces
// the whole file on every write; records are never appended in place.
func encodeKeys(keys []Key) []byte {
	var buf bytes.Buffer
	for _, key := range keys {
		fmt.Fprintf(&buf, "%d %d %s\n",
			key.ID, key.CreatedAt, hex.EncodeToString(key.Secret))
	}
	return buf.Bytes()
}

// isASCII reports whether data contains only non-NUL 7-bit bytes. 0x7F
// counts as ASCII.
func isASCII(data []byte) bool {
	for _, b := range data {
		if b == 0 || b > 0x7F {
			return false
		}
	}
	return true
}
