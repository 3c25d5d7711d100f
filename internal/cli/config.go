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
	"github.com/jeremyhahn/go-keyring/pkg/logging"
)

// DefaultContext is the keyring opened when no --context is given.
const DefaultContext = keyring.DefaultContext

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// Context names the key file within the keyring directory
	Context string

	// Dir overrides the derived <home>/.dbus-keyrings directory
	Dir string

	// User selects whose home directory holds the keyring.
	// Empty means the current process user.
	User string

	// OutputFormat controls output formatting (json, text, table)
	OutputFormat string

	// Verbose enables verbose logging
	Verbose bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Context:      DefaultContext,
		OutputFormat: "text",
		Verbose:      false,
	}
}

// OpenKeyring opens the keyring selected by the configuration.
// Callers own the returned keyring and must Close it.
func (c *Config) OpenKeyring() (*keyring.Keyring, error) {
	kr, err := keyring.New(&keyring.Config{
		Context: c.Context,
		User:    c.User,
		Dir:     c.Dir,
		Logger:  c.logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring %q: %w", c.Context, err)
	}
	return kr, nil
}

// logger builds the keyring library logger. Verbose mode surfaces the
// diagnostics the library otherwise absorbs at debug level.
func (c *Config) logger() logging.Logger {
	level := logging.LevelWarn
	if c.Verbose {
		level = logging.LevelDebug
	}
	return logging.NewSlogAdapter(&logging.SlogConfig{
		Level:  level,
		Output: os.Stderr,
	})
}

// ResolveDir returns the keyring directory the configuration points at,
// without opening a keyring. Used by commands that enumerate contexts.
func (c *Config) ResolveDir() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	return keyring.DirForUser(c.User)
}
