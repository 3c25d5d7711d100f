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

	"github.com/spf13/cobra"
)

// pathsCmd prints the filesystem locations for the selected context
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the keyring paths for the selected context",
	Long:  `Print the keyring directory, key file, and lock file paths`,
	Run: func(cmd *cobra.Command, args []string) {
		kr, err := getConfig().OpenKeyring()
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = kr.Close() }()

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintPaths(kr.Dir(), kr.Path(), kr.LockPath()); err != nil {
			handleError(err)
		}
	},
}
