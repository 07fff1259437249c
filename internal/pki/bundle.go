package pki

import (
	"crypto/x509"
	"fmt"
)

// Bundle is a CA together with a server and a client identity it issued.
type Bundle struct {
	CA     *MemorySigner
	Server *Identity
	Client *Identity
}

// NewBundle creates a CA named name and issues a localhost server certificate
// and a client certificate from it.
func NewBundle(name string) (*Bundle, error) {
	ca, err := NewMemorySigner(name + " CA")
	if err != nil {
		return nil, err
	}

	server, err := IssueServer(ca, "localhost")
	if err != nil {
		return nil, fmt.Errorf("issue server certificate: %w", err)
	}

	client, err := IssueClient(ca, name+"-client")
	if err != nil {
		return nil, fmt.Errorf("issue client certificate: %w", err)
	}

	return &Bundle{CA: ca, Server: server, Client: client}, nil
}

// CACert returns the CA certificate.
func (b *Bundle) CACert() *x509.Certificate {
	return b.CA.caCert
}

// CACertificates returns the CA certificate as a trust anchor list.
func (b *Bundle) CACertificates() []*x509.Certificate {
	return []*x509.Certificate{b.CA.caCert}
}
