package truststore

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/twowayssl/internal/tlserr"
)

// Loader reads key stores and trust stores. It is safe for concurrent use.
type Loader struct {
	logger zerolog.Logger

	ssmOnce sync.Once
	ssm     SSMGetter
	ssmErr  error
}

// Option configures a Loader.
type Option func(*Loader)

// WithSSM sets the client used for ssm:// stores. Without it a client is
// created from the default AWS configuration on first use.
func WithSSM(client SSMGetter) Option {
	return func(l *Loader) {
		l.ssm = client
	}
}

// WithLogger sets the logger used to report loaded material.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadCredential reads the private key and certificate chain held in a key
// store.
func (l *Loader) LoadCredential(ctx context.Context, st Store) (*Credential, error) {
	const op = "load key store"

	data, err := l.read(ctx, st, op)
	if err != nil {
		return nil, err
	}

	var cred *Credential
	switch st.resolvedFormat() {
	case FormatPKCS12:
		cred, err = decodePKCS12Credential(data, st, op)
	case FormatJKS:
		cred, err = decodeJKSCredential(data, st, op)
	case FormatPEM:
		cred, err = decodePEMCredential(data, st, op)
	default:
		err = tlserr.Errorf(tlserr.KindFormat, op, st.Path, "unsupported store format %q", st.Format)
	}
	if err != nil {
		return nil, err
	}

	cred.Source = st.Path
	if err := cred.Validate(); err != nil {
		return nil, tlserr.New(tlserr.KindIntegrity, op, st.Path, err)
	}

	leaf := cred.Leaf()
	l.logger.Debug().
		Str("store", st.String()).
		Str("subject", leaf.Subject.String()).
		Str("issuer", leaf.Issuer.String()).
		Time("not_after", leaf.NotAfter).
		Int("chain_length", len(cred.Chain)).
		Msg("key store loaded")

	return cred, nil
}

// LoadTrustAnchors reads the trusted certificates held in a trust store.
func (l *Loader) LoadTrustAnchors(ctx context.Context, st Store) (*TrustAnchors, error) {
	const op = "load trust store"

	data, err := l.read(ctx, st, op)
	if err != nil {
		return nil, err
	}

	var anchors *TrustAnchors
	switch st.resolvedFormat() {
	case FormatPKCS12:
		anchors, err = decodePKCS12TrustAnchors(data, st, op)
	case FormatJKS:
		anchors, err = decodeJKSTrustAnchors(data, st, op)
	case FormatPEM:
		anchors, err = decodePEMTrustAnchors(data, st, op)
	default:
		err = tlserr.Errorf(tlserr.KindFormat, op, st.Path, "unsupported store format %q", st.Format)
	}
	if err != nil {
		return nil, err
	}
	if anchors.Len() == 0 {
		return nil, tlserr.Errorf(tlserr.KindFormat, op, st.Path, "no trusted certificates found")
	}

	anchors.Source = st.Path
	l.logger.Debug().
		Str("store", st.String()).
		Int("anchors", anchors.Len()).
		Msg("trust store loaded")

	return anchors, nil
}
