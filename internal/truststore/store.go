// Package truststore loads identity (key store) and trust (trust store)
// material from PKCS#12, JKS or PEM containers.
//
// Stores are read from the filesystem or from AWS SSM Parameter Store
// (ssm://name). Nothing is cached: every call re-reads its source, and callers
// are expected to load once at startup.
package truststore

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the container format of a store.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatPKCS12 Format = "pkcs12"
	FormatJKS    Format = "jks"
	FormatPEM    Format = "pem"
)

// ParseFormat accepts the names used in configuration.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatAuto):
		return FormatAuto, nil
	case string(FormatPKCS12), "p12", "pfx":
		return FormatPKCS12, nil
	case string(FormatJKS):
		return FormatJKS, nil
	case string(FormatPEM):
		return FormatPEM, nil
	default:
		return "", fmt.Errorf("unsupported store format %q", value)
	}
}

// Store references a key store or trust store.
type Store struct {
	Path     string
	Password string
	Format   Format
	// Alias selects a private key entry in a JKS key store. Empty picks the
	// first private key entry.
	Alias string
}

// Configured reports whether a path was supplied.
func (s Store) Configured() bool {
	return strings.TrimSpace(s.Path) != ""
}

// String renders the store without its password.
func (s Store) String() string {
	return fmt.Sprintf("%s (%s)", s.Path, s.resolvedFormat())
}

func (s Store) resolvedFormat() Format {
	if s.Format != "" && s.Format != FormatAuto {
		return s.Format
	}
	switch strings.ToLower(filepath.Ext(strings.TrimPrefix(s.Path, ssmScheme))) {
	case ".jks", ".keystore", ".truststore":
		return FormatJKS
	case ".pem", ".crt", ".cer", ".key":
		return FormatPEM
	default:
		return FormatPKCS12
	}
}
