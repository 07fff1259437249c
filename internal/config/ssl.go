// Package config holds the startup configuration shared by the server and
// client commands.
package config

import (
	"fmt"

	"github.com/wolfeidau/twowayssl/internal/tlspolicy"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

// SSLFlags are the TLS options recognised by both processes. They are
// embedded into a command with prefix "ssl-" and an env prefix naming the
// process, e.g. SERVER_SSL_KEY_STORE.
type SSLFlags struct {
	OneWayAuthenticationEnabled bool `help:"enable one-way TLS: the server proves its identity" default:"false" env:"ONE_WAY_AUTHENTICATION_ENABLED"`
	TwoWayAuthenticationEnabled bool `help:"enable two-way TLS: both peers prove their identity, takes precedence over one-way" default:"false" env:"TWO_WAY_AUTHENTICATION_ENABLED"`

	KeyStore         string `help:"key store path or ssm://parameter holding the private key and certificate chain" env:"KEY_STORE"`
	KeyStorePassword string `help:"key store password" env:"KEY_STORE_PASSWORD"`
	KeyStoreType     string `help:"key store format" default:"auto" enum:"auto,pkcs12,p12,pfx,jks,pem" env:"KEY_STORE_TYPE"`
	KeyAlias         string `help:"alias of the key entry in a jks key store, defaults to the first key entry" env:"KEY_ALIAS"`

	TrustStore         string `help:"trust store path or ssm://parameter holding trusted certificates" env:"TRUST_STORE"`
	TrustStorePassword string `help:"trust store password" env:"TRUST_STORE_PASSWORD"`
	TrustStoreType     string `help:"trust store format" default:"auto" enum:"auto,pkcs12,p12,pfx,jks,pem" env:"TRUST_STORE_TYPE"`
}

// SSL converts the parsed flags into an immutable value.
func (f *SSLFlags) SSL() (SSL, error) {
	keyFormat, err := truststore.ParseFormat(f.KeyStoreType)
	if err != nil {
		return SSL{}, fmt.Errorf("key store type: %w", err)
	}
	trustFormat, err := truststore.ParseFormat(f.TrustStoreType)
	if err != nil {
		return SSL{}, fmt.Errorf("trust store type: %w", err)
	}

	return SSL{
		oneWay: f.OneWayAuthenticationEnabled,
		twoWay: f.TwoWayAuthenticationEnabled,
		keyStore: truststore.Store{
			Path:     f.KeyStore,
			Password: f.KeyStorePassword,
			Format:   keyFormat,
			Alias:    f.KeyAlias,
		},
		trustStore: truststore.Store{
			Path:     f.TrustStore,
			Password: f.TrustStorePassword,
			Format:   trustFormat,
		},
	}, nil
}

// SSL is the TLS configuration of a process, assembled once at startup.
type SSL struct {
	oneWay     bool
	twoWay     bool
	keyStore   truststore.Store
	trustStore truststore.Store
}

// Policy selects the authentication policy from the two flags.
func (s SSL) Policy() tlspolicy.AuthPolicy {
	return tlspolicy.Select(s.oneWay, s.twoWay)
}

// KeyStore returns the key store location.
func (s SSL) KeyStore() truststore.Store { return s.keyStore }

// TrustStore returns the trust store location.
func (s SSL) TrustStore() truststore.Store { return s.trustStore }

// String renders the configuration without passwords.
func (s SSL) String() string {
	return fmt.Sprintf("policy=%s key_store=%s trust_store=%s", s.Policy(), s.keyStore, s.trustStore)
}
