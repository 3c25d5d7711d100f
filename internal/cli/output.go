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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeremyhahn/go-keyring/pkg/keyring"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText  OutputFormat = "text"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// Printer handles formatted output. Cookie secrets are never printed;
// every key representation carries metadata only.
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// keyJSON is the wire shape for a single key. The secret itself stays
// out; only its length is reported.
func keyJSON(key keyring.Key, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"id":           key.ID,
		"created_at":   time.Unix(key.CreatedAt, 0).UTC().Format(time.RFC3339),
		"age_seconds":  now.Unix() - key.CreatedAt,
		"secret_bytes": len(key.Secret),
	}
}

// keyAge renders the key age for human output. Future-dated keys (clock
// skew within the tolerated window) render as "future".
func keyAge(key keyring.Key, now time.Time) string {
	age := now.Unix() - key.CreatedAt
	if age < 0 {
		return "future"
	}
	return (time.Duration(age) * time.Second).String()
}

// PrintKeyList prints the keys of a context
func (p *Printer) PrintKeyList(context string, keys []keyring.Key, now time.Time) error {
	switch p.format {
	case OutputFormatJSON:
		keyList := make([]map[string]interface{}, len(keys))
		for i, key := range keys {
			keyList[i] = keyJSON(key, now)
		}
		return p.printJSON(map[string]interface{}{
			"context": context,
			"keys":    keyList,
		})
	case OutputFormatTable:
		if len(keys) == 0 {
			fmt.Fprintln(p.writer, "No keys found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-12s %-22s %-12s %-12s\n", "ID", "CREATED", "AGE", "SECRET BYTES")
		fmt.Fprintln(p.writer, strings.Repeat("-", 62))
		for _, key := range keys {
			fmt.Fprintf(p.writer, "%-12d %-22s %-12s %-12d\n",
				key.ID,
				time.Unix(key.CreatedAt, 0).UTC().Format(time.RFC3339),
				keyAge(key, now),
				len(key.Secret))
		}
		return nil
	case OutputFormatText:
		if len(keys) == 0 {
			fmt.Fprintf(p.writer, "No keys in context %s\n", context)
			return nil
		}
		fmt.Fprintf(p.writer, "Keys in context %s:\n", context)
		for _, key := range keys {
			fmt.Fprintf(p.writer, "  - %d (created %s, age %s)\n",
				key.ID,
				time.Unix(key.CreatedAt, 0).UTC().Format(time.RFC3339),
				keyAge(key, now))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintKeyInfo prints metadata for a single key
func (p *Printer) PrintKeyInfo(key keyring.Key, now time.Time) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(keyJSON(key, now))
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, "Key Information:")
		fmt.Fprintf(p.writer, "  ID:           %d\n", key.ID)
		fmt.Fprintf(p.writer, "  Created:      %s\n", time.Unix(key.CreatedAt, 0).UTC().Format(time.RFC3339))
		fmt.Fprintf(p.writer, "  Age:          %s\n", keyAge(key, now))
		fmt.Fprintf(p.writer, "  Secret Bytes: %d\n", len(key.Secret))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintBestKey prints the selected best key ID
func (p *Printer) PrintBestKey(context string, id int32) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"context": context,
			"key_id":  id,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "%d\n", id)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintContextList prints the contexts present in a keyring directory
func (p *Printer) PrintContextList(dir string, contexts []string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"dir":      dir,
			"contexts": contexts,
		})
	case OutputFormatTable, OutputFormatText:
		if len(contexts) == 0 {
			fmt.Fprintf(p.writer, "No contexts in %s\n", dir)
			return nil
		}
		fmt.Fprintf(p.writer, "Contexts in %s:\n", dir)
		for _, c := range contexts {
			fmt.Fprintf(p.writer, "  - %s\n", c)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintPaths prints the resolved filesystem paths for a context
func (p *Printer) PrintPaths(dir, file, lock string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"dir":  dir,
			"file": file,
			"lock": lock,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "Directory: %s\n", dir)
		fmt.Fprintf(p.writer, "Key file:  %s\n", file)
		fmt.Fprintf(p.writer, "Lock file: %s\n", lock)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintPurgeResult prints the outcome of a purge
func (p *Printer) PrintPurgeResult(context string, remaining int) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"context":        context,
			"keys_remaining": remaining,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "Purged context %s: %d keys remain\n", context, remaining)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintValidation prints the result of validating a context
func (p *Printer) PrintValidation(context, dir string, keys int) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"context": context,
			"dir":     dir,
			"keys":    keys,
			"valid":   true,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "Context %s is valid\n", context)
		fmt.Fprintf(p.writer, "  Directory: %s\n", dir)
		fmt.Fprintf(p.writer, "  Keys held: %d\n", keys)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
