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
	"os"

	"github.com/jeremyhahn/go-keyring/pkg/keyring"
	"github.com/spf13/cobra"
)

// contextsCmd lists the contexts present in the keyring directory
var contextsCmd = &cobra.Command{
	Use:   "contexts",
	Short: "List contexts in the keyring directory",
	Long: `List every context (key file) present in the keyring directory.
Lock files and names no context is allowed to have are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := getConfig().ResolveDir()
		if err != nil {
			handleError(err)
			return
		}

		contexts, err := keyring.ListContexts(dir)
		if err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintContextList(dir, contexts); err != nil {
			handleError(err)
		}
	},
}
