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
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration
	globalConfig *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "keyring",
	Short: "go-keyring CLI - DBus cookie keyring inspection and maintenance",
	Long: `go-keyring CLI inspects and maintains DBus-style cookie keyrings:
per-user files of rotating shared secrets used by cookie-based
authentication. Each keyring lives under ~/.dbus-keyrings/<context>
and holds one cookie per line.

Cookie secrets never appear in any output; commands print key IDs,
creation times, and ages only.

Settings resolve in order: flag, KEYRING_* environment variable,
config file (default $HOME/.keyring.yaml), built-in default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize global config
	globalConfig = NewConfig()

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&globalConfig.ConfigFile, "config", "",
		"config file (default is $HOME/.keyring.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalConfig.Context, "context", DefaultContext,
		"keyring context (names the key file)")
	rootCmd.PersistentFlags().StringVar(&globalConfig.Dir, "dir", "",
		"keyring directory (default is <home>/.dbus-keyrings)")
	rootCmd.PersistentFlags().StringVar(&globalConfig.User, "user", "",
		"user whose keyring to open (default is the current user)")
	rootCmd.PersistentFlags().StringVarP(&globalConfig.OutputFormat, "output", "o", "text",
		"output format (text, json, table)")
	rootCmd.PersistentFlags().BoolVarP(&globalConfig.Verbose, "verbose", "v", false,
		"verbose output")

	// Flags double as viper keys so KEYRING_CONTEXT, KEYRING_DIR, and
	// friends override the config file without touching the flag set.
	for _, name := range []string{"context", "dir", "user", "output"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("KEYRING")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(contextsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(pathsCmd)
}

// initConfig reads the config file and resolves the effective settings
// into the global config. Runs after flag parsing, before any command.
func initConfig() {
	if globalConfig.ConfigFile != "" {
		viper.SetConfigFile(globalConfig.ConfigFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".keyring")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		printVerbose("using config file: %s", viper.ConfigFileUsed())
	} else if globalConfig.ConfigFile != "" {
		// An explicitly named config file must be readable.
		handleError(fmt.Errorf("failed to read config file: %w", err))
	}

	globalConfig.Context = viper.GetString("context")
	globalConfig.Dir = viper.GetString("dir")
	globalConfig.User = viper.GetString("user")
	globalConfig.OutputFormat = viper.GetString("output")
}

// getConfig returns the global configuration
func getConfig() *Config {
	return globalConfig
}

// handleError prints an error and exits with code 1
func handleError(err error) {
	printer := NewPrinter(globalConfig.OutputFormat, os.Stderr)
	_ = printer.PrintError(err) // Error printing to stderr is best-effort
	os.Exit(1)
}

// printVerbose prints a message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if globalConfig.Verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
