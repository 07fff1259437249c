package truststore

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
)

// Credential is identity material: a private key and its certificate chain,
// leaf first.
type Credential struct {
	PrivateKey crypto.Signer
	Chain      []*x509.Certificate
	Source     string
}

// Leaf returns the end-entity certificate, or nil for an empty chain.
func (c *Credential) Leaf() *x509.Certificate {
	if c == nil || len(c.Chain) == 0 {
		return nil
	}
	return c.Chain[0]
}

// Validate checks the key is present, the chain is non-empty and the key
// belongs to the leaf certificate.
func (c *Credential) Validate() error {
	if c == nil {
		return errors.New("credential is nil")
	}
	if c.PrivateKey == nil {
		return errors.New("private key is missing")
	}
	if len(c.Chain) == 0 {
		return errors.New("certificate chain is empty")
	}
	return verifyCertKeyPair(c.Chain[0], c.PrivateKey)
}

// Certificate converts the credential into the form crypto/tls presents
// during a handshake.
func (c *Credential) Certificate() tls.Certificate {
	cert := tls.Certificate{
		PrivateKey: c.PrivateKey,
		Leaf:       c.Leaf(),
	}
	for _, link := range c.Chain {
		cert.Certificate = append(cert.Certificate, link.Raw)
	}
	return cert
}

// verifyCertKeyPair checks that a certificate's public key matches a private key
func verifyCertKeyPair(cert *x509.Certificate, key crypto.Signer) error {
	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return fmt.Errorf("unsupported private key type %T", key)
	}
	if !pub.Equal(cert.PublicKey) {
		return errors.New("private key does not match leaf certificate")
	}
	return nil
}

// TrustAnchors is the set of certificates used to verify peers. It is never
// used for signing.
type TrustAnchors struct {
	Certificates []*x509.Certificate
	Source       string
}

// Pool builds a fresh certificate pool from the anchors.
func (t *TrustAnchors) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	if t == nil {
		return pool
	}
	for _, cert := range t.Certificates {
		pool.AddCert(cert)
	}
	return pool
}

// Len returns the number of anchors.
func (t *TrustAnchors) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Certificates)
}
