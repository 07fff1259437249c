package pki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"net"
	"time"
)

// Identity is an issued key pair with its chain, leaf first.
type Identity struct {
	Key   *ecdsa.PrivateKey
	Chain []*x509.Certificate
}

// Leaf returns the issued certificate.
func (i *Identity) Leaf() *x509.Certificate {
	return i.Chain[0]
}

// IssueServer issues a server certificate valid for localhost and the
// loopback addresses.
func IssueServer(signer CASigner, commonName string) (*Identity, error) {
	return issue(signer, commonName, x509.ExtKeyUsageServerAuth)
}

// IssueClient issues a client certificate.
func IssueClient(signer CASigner, commonName string) (*Identity, error) {
	return issue(signer, commonName, x509.ExtKeyUsageClientAuth)
}

func issue(signer CASigner, commonName string, usage x509.ExtKeyUsage) (*Identity, error) {
	caCert, err := signer.GetCACertificate()
	if err != nil {
		return nil, fmt.Errorf("failed to get CA certificate: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serialNumber, err := newSerialNumber()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"twowayssl"},
		},
		NotBefore:   time.Now().Add(-time.Minute),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{usage},
		PublicKey:   &key.PublicKey,
	}
	if usage == x509.ExtKeyUsageServerAuth {
		template.DNSNames = []string{"localhost"}
		template.IPAddresses = []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
	}

	certDER, err := signer.SignCertificate(template)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &Identity{Key: key, Chain: []*x509.Certificate{cert, caCert}}, nil
}
