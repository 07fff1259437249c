package pki

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"software.sslmate.com/src/go-pkcs12"
)

// Stores written by this package hold private keys, so they are only readable
// by the owner.
const storeMode = 0o600

// WritePKCS12KeyStore writes the identity into a password protected PKCS#12 file.
func WritePKCS12KeyStore(path, password string, id *Identity) error {
	data, err := pkcs12.Modern.Encode(id.Key, id.Leaf(), id.Chain[1:], password)
	if err != nil {
		return fmt.Errorf("failed to encode PKCS#12 key store: %w", err)
	}
	return os.WriteFile(path, data, storeMode)
}

// WritePKCS12TrustStore writes certs into a PKCS#12 trust store.
func WritePKCS12TrustStore(path, password string, certs ...*x509.Certificate) error {
	data, err := pkcs12.Modern.EncodeTrustStore(certs, password)
	if err != nil {
		return fmt.Errorf("failed to encode PKCS#12 trust store: %w", err)
	}
	return os.WriteFile(path, data, storeMode)
}

// WriteJKSKeyStore writes the identity into a JKS key store under alias.
func WriteJKSKeyStore(path, password, alias string, id *Identity) error {
	keyDER, err := x509.MarshalPKCS8PrivateKey(id.Key)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	entry := keystore.PrivateKeyEntry{
		CreationTime: time.Now(),
		PrivateKey:   keyDER,
	}
	for _, cert := range id.Chain {
		entry.CertificateChain = append(entry.CertificateChain, keystore.Certificate{
			Type:    "X509",
			Content: cert.Raw,
		})
	}

	ks := keystore.New()
	if err := ks.SetPrivateKeyEntry(alias, entry, []byte(password)); err != nil {
		return fmt.Errorf("failed to set key entry: %w", err)
	}
	return storeJKS(path, password, ks)
}

// WriteJKSTrustStore writes certs into a JKS trust store as trusted
// certificate entries named ca-0, ca-1, ...
func WriteJKSTrustStore(path, password string, certs ...*x509.Certificate) error {
	ks := keystore.New()
	for i, cert := range certs {
		entry := keystore.TrustedCertificateEntry{
			CreationTime: time.Now(),
			Certificate: keystore.Certificate{
				Type:    "X509",
				Content: cert.Raw,
			},
		}
		if err := ks.SetTrustedCertificateEntry(fmt.Sprintf("ca-%d", i), entry); err != nil {
			return fmt.Errorf("failed to set trusted entry: %w", err)
		}
	}
	return storeJKS(path, password, ks)
}

func storeJKS(path, password string, ks keystore.KeyStore) error {
	var buf bytes.Buffer
	if err := ks.Store(&buf, []byte(password)); err != nil {
		return fmt.Errorf("failed to encode JKS store: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), storeMode)
}

// WritePEMKeyStore writes the PKCS#8 key followed by the chain.
func WritePEMKeyStore(path string, id *Identity) error {
	keyDER, err := x509.MarshalPKCS8PrivateKey(id.Key)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	var buf bytes.Buffer
	if err := pem.Encode(&buf, &pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}); err != nil {
		return err
	}
	for _, cert := range id.Chain {
		if err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), storeMode)
}

// WritePEMTrustStore writes certs as a PEM bundle.
func WritePEMTrustStore(path string, certs ...*x509.Certificate) error {
	var buf bytes.Buffer
	for _, cert := range certs {
		if err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), storeMode)
}
