package bootstrap

import (
	"context"
	"crypto/tls"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/twowayssl/internal/config"
	"github.com/wolfeidau/twowayssl/internal/pki"
	"github.com/wolfeidau/twowayssl/internal/tlserr"
	"github.com/wolfeidau/twowayssl/internal/tlspolicy"
	"github.com/wolfeidau/twowayssl/internal/tlsctx"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

const password = "changeit"

type stores struct {
	serverKey, clientKey, trust string
}

func writeStores(t *testing.T) stores {
	t.Helper()

	bundle, err := pki.NewBundle("bootstrap")
	require.NoError(t, err)

	dir := t.TempDir()
	s := stores{
		serverKey: filepath.Join(dir, "server.p12"),
		clientKey: filepath.Join(dir, "client.jks"),
		trust:     filepath.Join(dir, "trust.p12"),
	}
	require.NoError(t, pki.WritePKCS12KeyStore(s.serverKey, password, bundle.Server))
	require.NoError(t, pki.WriteJKSKeyStore(s.clientKey, password, "client", bundle.Client))
	require.NoError(t, pki.WritePKCS12TrustStore(s.trust, password, bundle.CACert()))
	return s
}

func ssl(t *testing.T, flags config.SSLFlags) config.SSL {
	t.Helper()
	value, err := flags.SSL()
	require.NoError(t, err)
	return value
}

func TestTLSContext(t *testing.T) {
	s := writeStores(t)
	ctx := context.Background()
	loader := truststore.NewLoader()
	logger := zerolog.Nop()

	tests := []struct {
		name     string
		role     tlsctx.Role
		flags    config.SSLFlags
		wantErr  error
		wantAuth tls.ClientAuthType
		enabled  bool
	}{
		{
			name:  "disabled reads nothing",
			role:  tlsctx.RoleServer,
			flags: config.SSLFlags{KeyStore: "/does/not/exist.p12"},
		},
		{
			name:     "server one-way",
			role:     tlsctx.RoleServer,
			flags:    config.SSLFlags{OneWayAuthenticationEnabled: true, KeyStore: s.serverKey, KeyStorePassword: password},
			enabled:  true,
			wantAuth: tls.NoClientCert,
		},
		{
			name: "server two-way",
			role: tlsctx.RoleServer,
			flags: config.SSLFlags{
				TwoWayAuthenticationEnabled: true,
				KeyStore:                    s.serverKey, KeyStorePassword: password,
				TrustStore: s.trust, TrustStorePassword: password,
			},
			enabled:  true,
			wantAuth: tls.RequireAndVerifyClientCert,
		},
		{
			name: "client two-way with jks key store",
			role: tlsctx.RoleClient,
			flags: config.SSLFlags{
				TwoWayAuthenticationEnabled: true,
				KeyStore:                    s.clientKey, KeyStorePassword: password,
				TrustStore: s.trust, TrustStorePassword: password,
			},
			enabled: true,
		},
		{
			name:    "server one-way without key store",
			role:    tlsctx.RoleServer,
			flags:   config.SSLFlags{OneWayAuthenticationEnabled: true},
			wantErr: tlserr.ErrConfig,
		},
		{
			name:    "client two-way without key store",
			role:    tlsctx.RoleClient,
			flags:   config.SSLFlags{TwoWayAuthenticationEnabled: true, TrustStore: s.trust, TrustStorePassword: password},
			wantErr: tlserr.ErrConfig,
		},
		{
			name:    "missing key store file",
			role:    tlsctx.RoleServer,
			flags:   config.SSLFlags{OneWayAuthenticationEnabled: true, KeyStore: s.serverKey + ".missing", KeyStorePassword: password},
			wantErr: tlserr.ErrIO,
		},
		{
			name:    "wrong trust store password",
			role:    tlsctx.RoleClient,
			flags:   config.SSLFlags{OneWayAuthenticationEnabled: true, TrustStore: s.trust, TrustStorePassword: "wrong"},
			wantErr: tlserr.ErrFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := TLSContext(ctx, tt.role, ssl(t, tt.flags), loader, logger)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.enabled, tc.Enabled())
			require.Equal(t, tt.role, tc.Role())
			if tt.enabled && tt.role == tlsctx.RoleServer {
				require.Equal(t, tt.wantAuth, tc.TLSConfig().ClientAuth)
			}
		})
	}
}

func TestLoad_Disabled(t *testing.T) {
	materials, err := Load(context.Background(), tlsctx.RoleClient, ssl(t, config.SSLFlags{TrustStore: "/missing"}), truststore.NewLoader(), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, tlspolicy.Disabled, materials.Policy)
	require.Nil(t, materials.Credential)
	require.Nil(t, materials.Anchors)
}

func TestLoad_MissingStoreFailsBeforeReading(t *testing.T) {
	tests := []struct {
		name  string
		role  tlsctx.Role
		flags config.SSLFlags
	}{
		{
			name:  "client two-way with no stores",
			role:  tlsctx.RoleClient,
			flags: config.SSLFlags{TwoWayAuthenticationEnabled: true},
		},
		{
			// the configured store does not exist, yet the missing one is reported
			name:  "client two-way with only a trust store",
			role:  tlsctx.RoleClient,
			flags: config.SSLFlags{TwoWayAuthenticationEnabled: true, TrustStore: "/does/not/exist.p12"},
		},
		{
			name:  "server two-way without trust store",
			role:  tlsctx.RoleServer,
			flags: config.SSLFlags{TwoWayAuthenticationEnabled: true, KeyStore: "/does/not/exist.p12"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			materials, err := Load(context.Background(), tt.role, ssl(t, tt.flags), truststore.NewLoader(), zerolog.Nop())
			require.Nil(t, materials)
			require.ErrorIs(t, err, tlserr.ErrConfig)
			require.NotErrorIs(t, err, tlserr.ErrIO)
		})
	}
}
