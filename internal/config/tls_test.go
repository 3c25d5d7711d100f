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

package config

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/jeremyhahn/go-keyring/internal/testutil"
)

// writeServerCert generates a CA-signed server certificate and writes the
// PEM files into a temp directory.
func writeServerCert(t *testing.T) (certFile, keyFile string) {
	t.Helper()

	ca, err := testutil.GenerateTestCA()
	if err != nil {
		t.Fatalf("Failed to generate CA: %v", err)
	}

	serverCert, err := testutil.GenerateTestServerCert(ca, "localhost")
	if err != nil {
		t.Fatalf("Failed to generate server cert: %v", err)
	}

	tmpDir := t.TempDir()
	certFile = filepath.Join(tmpDir, "cert.pem")
	keyFile = filepath.Join(tmpDir, "key.pem")

	if err := os.WriteFile(certFile, serverCert.CertPEM, 0644); err != nil {
		t.Fatalf("Failed to write cert file: %v", err)
	}
	if err := os.WriteFile(keyFile, serverCert.KeyPEM, 0600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	return certFile, keyFile
}

func TestLoadTLSConfig_Disabled(t *testing.T) {
	cfg := &TLSConfig{
		Enabled: false,
	}

	tlsConfig, err := cfg.LoadTLSConfig()

	if err != nil {
		t.Fatalf("LoadTLSConfig() error = %v, want nil", err)
	}

	if tlsConfig != nil {
		t.Errorf("LoadTLSConfig() = %v, want nil for disabled TLS", tlsConfig)
	}
}

func TestLoadTLSConfig_ValidConfig(t *testing.T) {
	certFile, keyFile := writeServerCert(t)

	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: certFile,
		KeyFile:  keyFile,
	}

	tlsConfig, err := cfg.LoadTLSConfig()

	if err != nil {
		t.Fatalf("LoadTLSConfig() error = %v, want nil", err)
	}
	if tlsConfig == nil {
		t.Fatal("LoadTLSConfig() returned nil config")
	}

	if len(tlsConfig.Certificates) != 1 {
		t.Errorf("len(Certificates) = %d, want 1", len(tlsConfig.Certificates))
	}
	if tlsConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2 default", tlsConfig.MinVersion)
	}
}

func TestLoadTLSConfig_MissingCertFile(t *testing.T) {
	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	}

	_, err := cfg.LoadTLSConfig()

	if err == nil {
		t.Fatal("LoadTLSConfig() should return error for missing cert file")
	}
}

func TestLoadTLSConfig_Versions(t *testing.T) {
	certFile, keyFile := writeServerCert(t)

	cfg := &TLSConfig{
		Enabled:    true,
		CertFile:   certFile,
		KeyFile:    keyFile,
		MinVersion: "TLS1.3",
		MaxVersion: "TLS1.3",
	}

	tlsConfig, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("LoadTLSConfig() error = %v, want nil", err)
	}

	if tlsConfig.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", tlsConfig.MinVersion)
	}
	if tlsConfig.MaxVersion != tls.VersionTLS13 {
		t.Errorf("MaxVersion = %x, want TLS 1.3", tlsConfig.MaxVersion)
	}
}

func TestLoadTLSConfig_CipherSuites(t *testing.T) {
	certFile, keyFile := writeServerCert(t)

	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: certFile,
		KeyFile:  keyFile,
		CipherSuites: []string{
			"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384",
			"TLS_AES_256_GCM_SHA384",
		},
	}

	tlsConfig, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("LoadTLSConfig() error = %v, want nil", err)
	}

	if len(tlsConfig.CipherSuites) != 2 {
		t.Errorf("len(CipherSuites) = %d, want 2", len(tlsConfig.CipherSuites))
	}
}

func TestLoadTLSConfig_UnknownCipherSuite(t *testing.T) {
	certFile, keyFile := writeServerCert(t)

	cfg := &TLSConfig{
		Enabled:      true,
		CertFile:     certFile,
		KeyFile:      keyFile,
		CipherSuites: []string{"TLS_TOTALLY_MADE_UP"},
	}

	_, err := cfg.LoadTLSConfig()
	if err == nil {
		t.Fatal("LoadTLSConfig() should reject unknown cipher suites")
	}
}

func TestParseTLSVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected uint16
	}{
		{"TLS1.0", tls.VersionTLS10},
		{"TLS1.1", tls.VersionTLS11},
		{"TLS1.2", tls.VersionTLS12},
		{"TLS1.3", tls.VersionTLS13},
		{"bogus", tls.VersionTLS12},
		{"", tls.VersionTLS12},
	}

	for _, tt := range tests {
		name := tt.input
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			if got := parseTLSVersion(tt.input); got != tt.expected {
				t.Errorf("parseTLSVersion(%q) = %x, want %x", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseCipherSuites(t *testing.T) {
	suites, err := parseCipherSuites([]string{
		"TLS_AES_128_GCM_SHA256",
		"TLS_CHACHA20_POLY1305_SHA256",
	})
	if err != nil {
		t.Fatalf("parseCipherSuites() error = %v, want nil", err)
	}
	if len(suites) != 2 {
		t.Errorf("len(suites) = %d, want 2", len(suites))
	}

	if _, err := parseCipherSuites([]string{"NOPE"}); err == nil {
		t.Error("parseCipherSuites() should reject unknown suite names")
	}
}
