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
	"os"

	"github.com/jeremyhahn/go-keyring/pkg/keyring"
	"github.com/spf13/cobra"
)

// validateCmd checks that a context can be served
var validateCmd = &cobra.Command{
	Use:   "validate [context]",
	Short: "Validate a context name and its keyring",
	Long: `Check that a context name is legal, that the keyring directory is
private to its owner, and that the key file parses. With no argument
the configured context is validated. Run with --verbose to see which
lines a tolerant load would skip.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		context := cfg.Context
		if len(args) == 1 {
			context = args[0]
		}

		if err := keyring.ValidateContext(context); err != nil {
			handleError(err)
			return
		}

		// Opening enforces directory privacy and exercises the tolerant
		// loader against the real file.
		probe := *cfg
		probe.Context = context
		kr, err := probe.OpenKeyring()
		if err != nil {
			handleError(fmt.Errorf("context %q failed validation: %w", context, err))
			return
		}
		defer func() { _ = kr.Close() }()

		printer := NewPrinter(cfg.OutputFormat, os.Stdout)
		if err := printer.PrintValidation(context, kr.Dir(), len(kr.Keys())); err != nil {
			handleError(err)
		}
	},
}
