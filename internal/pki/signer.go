// Package pki issues short-lived certificates and writes them into key stores
// and trust stores for the test suites. No command imports it.
package pki

import (
	"crypto/x509"
)

// CASigner signs certificate requests to create certificates.
type CASigner interface {
	// SignCertificate signs a certificate template and returns the DER-encoded certificate bytes.
	// The template must be fully populated with all required fields (subject, validity, extensions, etc.).
	SignCertificate(template *x509.Certificate) ([]byte, error)

	// GetCACertificate returns the CA certificate (public key only).
	// This is used for building certificate chains and trust stores.
	GetCACertificate() (*x509.Certificate, error)
}
