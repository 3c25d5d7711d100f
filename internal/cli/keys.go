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

package cli

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect and maintain the keys of a context",
	Long: `Inspect and maintain the cookie keys of a keyring context.

Keys rotate automatically: the best-key operation mints a replacement
when no key is fresh enough, and stale keys fall away on every
rewrite. These commands expose that lifecycle for operators.`,
}

// keysListCmd lists the keys of a context
var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keys in the keyring",
	Long:  `List the ID, creation time, and age of every key currently held`,
	Run: func(cmd *cobra.Command, args []string) {
		kr, err := getConfig().OpenKeyring()
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = kr.Close() }()

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintKeyList(kr.Context(), kr.Keys(), time.Now()); err != nil {
			handleError(err)
		}
	},
}

// keysMintCmd selects (and if necessary mints) the best key
var keysMintCmd = &cobra.Command{
	Use:     "mint",
	Aliases: []string{"best"},
	Short:   "Print the best key ID, minting a fresh key if none qualifies",
	Long: `Select the key a server would hand out for a new authentication
challenge. When every held key is too old, a fresh one is minted and
persisted before its ID is printed.`,
	Run: func(cmd *cobra.Command, args []string) {
		kr, err := getConfig().OpenKeyring()
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = kr.Close() }()

		id, err := kr.BestKeyID()
		if err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintBestKey(kr.Context(), id); err != nil {
			handleError(err)
		}
	},
}

// keysShowCmd shows metadata for one key
var keysShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show metadata for a single key",
	Long:  `Display creation time, age, and secret length for one key ID`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseKeyID(args[0])
		if err != nil {
			handleError(err)
			return
		}

		kr, err := getConfig().OpenKeyring()
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = kr.Close() }()

		key, ok := kr.KeyByID(id)
		if !ok {
			handleError(fmt.Errorf("no key with ID %d in context %q", id, kr.Context()))
			return
		}

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintKeyInfo(key, time.Now()); err != nil {
			handleError(err)
		}
	},
}

// keysPurgeCmd rewrites the key file keeping only live keys
var keysPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Rewrite the key file, dropping expired keys",
	Long: `Rewrite the key file under the advisory lock, keeping only keys
inside the expiry window. Reloads already filter expired keys from
memory; purge removes them from disk as well.`,
	Run: func(cmd *cobra.Command, args []string) {
		kr, err := getConfig().OpenKeyring()
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = kr.Close() }()

		remaining, err := kr.Purge()
		if err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintPurgeResult(kr.Context(), remaining); err != nil {
			handleError(err)
		}
	},
}

func init() {
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysMintCmd)
	keysCmd.AddCommand(keysShowCmd)
	keysCmd.AddCommand(keysPurgeCmd)
}

// parseKeyID parses a key ID argument. IDs are non-negative int32s.
func parseKeyID(arg string) (int32, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid key ID %q: %w", arg, err)
	}
	if id < 0 || id > math.MaxInt32 {
		return 0, fmt.Errorf("invalid key ID %d: must be between 0 and %d", id, math.MaxInt32)
	}
	return int32(id), nil
}
