package truststore

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/wolfeidau/twowayssl/internal/tlserr"
)

func decodePKCS12Credential(data []byte, st Store, op string) (*Credential, error) {
	key, leaf, caCerts, err := pkcs12.DecodeChain(data, st.Password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, tlserr.New(tlserr.KindFormat, op, st.Path, err)
		}
		// a readable store without a key bag is a trust store, not a corrupt file
		if _, tsErr := pkcs12.DecodeTrustStore(data, st.Password); tsErr == nil {
			return nil, tlserr.Errorf(tlserr.KindIntegrity, op, st.Path, "no private key entry in store")
		}
		return nil, tlserr.New(tlserr.KindFormat, op, st.Path, err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "unsupported private key type %T", key)
	}

	return &Credential{
		PrivateKey: signer,
		Chain:      append([]*x509.Certificate{leaf}, caCerts...),
	}, nil
}

func decodePKCS12TrustAnchors(data []byte, st Store, op string) (*TrustAnchors, error) {
	certs, err := pkcs12.DecodeTrustStore(data, st.Password)
	if err != nil {
		return nil, tlserr.New(tlserr.KindFormat, op, st.Path, err)
	}
	return &TrustAnchors{Certificates: certs}, nil
}

func loadJKS(data []byte, st Store, op string) (keystore.KeyStore, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(st.Password)); err != nil {
		return ks, tlserr.New(tlserr.KindFormat, op, st.Path, err)
	}
	return ks, nil
}

func decodeJKSCredential(data []byte, st Store, op string) (*Credential, error) {
	ks, err := loadJKS(data, st, op)
	if err != nil {
		return nil, err
	}

	alias := st.Alias
	if alias == "" {
		alias = firstPrivateKeyAlias(ks)
		if alias == "" {
			return nil, tlserr.Errorf(tlserr.KindIntegrity, op, st.Path, "no private key entry in store")
		}
	}

	if !ks.IsPrivateKeyEntry(alias) {
		return nil, tlserr.Errorf(tlserr.KindIntegrity, op, st.Path, "no private key entry with alias %q", alias)
	}

	entry, err := ks.GetPrivateKeyEntry(alias, []byte(st.Password))
	if err != nil {
		return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "key entry %q: %w", alias, err)
	}

	key, err := x509.ParsePKCS8PrivateKey(entry.PrivateKey)
	if err != nil {
		return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "key entry %q: %w", alias, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "unsupported private key type %T", key)
	}

	cred := &Credential{PrivateKey: signer}
	for _, c := range entry.CertificateChain {
		cert, err := x509.ParseCertificate(c.Content)
		if err != nil {
			return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "key entry %q: %w", alias, err)
		}
		cred.Chain = append(cred.Chain, cert)
	}
	return cred, nil
}

func firstPrivateKeyAlias(ks keystore.KeyStore) string {
	aliases := ks.Aliases()
	sort.Strings(aliases)
	for _, alias := range aliases {
		if ks.IsPrivateKeyEntry(alias) {
			return alias
		}
	}
	return ""
}

func decodeJKSTrustAnchors(data []byte, st Store, op string) (*TrustAnchors, error) {
	ks, err := loadJKS(data, st, op)
	if err != nil {
		return nil, err
	}

	aliases := ks.Aliases()
	sort.Strings(aliases)

	anchors := &TrustAnchors{}
	for _, alias := range aliases {
		if !ks.IsTrustedCertificateEntry(alias) {
			continue
		}
		entry, err := ks.GetTrustedCertificateEntry(alias)
		if err != nil {
			return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "trusted entry %q: %w", alias, err)
		}
		cert, err := x509.ParseCertificate(entry.Certificate.Content)
		if err != nil {
			return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "trusted entry %q: %w", alias, err)
		}
		anchors.Certificates = append(anchors.Certificates, cert)
	}
	return anchors, nil
}

func decodePEMCredential(data []byte, st Store, op string) (*Credential, error) {
	cred := &Credential{}
	blocks := 0

	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		blocks++

		switch block.Type {
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, tlserr.New(tlserr.KindFormat, op, st.Path, err)
			}
			cred.Chain = append(cred.Chain, cert)
		case "PRIVATE KEY", "EC PRIVATE KEY", "RSA PRIVATE KEY":
			if cred.PrivateKey != nil {
				return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "more than one private key")
			}
			key, err := parsePEMKey(block)
			if err != nil {
				return nil, tlserr.New(tlserr.KindFormat, op, st.Path, err)
			}
			cred.PrivateKey = key
		case "ENCRYPTED PRIVATE KEY":
			return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "encrypted PEM keys are not supported, use pkcs12 or jks")
		}
	}

	if blocks == 0 {
		return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "no PEM data found")
	}
	if cred.PrivateKey == nil {
		return nil, tlserr.Errorf(tlserr.KindIntegrity, op, st.Path, "no private key entry in store")
	}
	return cred, nil
}

func parsePEMKey(block *pem.Block) (crypto.Signer, error) {
	var (
		key any
		err error
	)
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}
	return signer, nil
}

func decodePEMTrustAnchors(data []byte, st Store, op string) (*TrustAnchors, error) {
	anchors := &TrustAnchors{}
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, tlserr.New(tlserr.KindFormat, op, st.Path, err)
		}
		anchors.Certificates = append(anchors.Certificates, cert)
	}
	return anchors, nil
}
