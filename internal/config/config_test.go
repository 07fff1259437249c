package config

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/twowayssl/internal/tlspolicy"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

type testCLI struct {
	Listen string   `default:"localhost:8443"`
	SSL    SSLFlags `embed:"" prefix:"ssl-" envprefix:"TEST_SSL_"`
}

func parse(t *testing.T, cli *testCLI, args []string, opts ...kong.Option) {
	t.Helper()
	parser, err := kong.New(cli, opts...)
	require.NoError(t, err)
	_, err = parser.Parse(args)
	require.NoError(t, err)
}

func TestSSLFlags_Policy(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected tlspolicy.AuthPolicy
	}{
		{name: "defaults are disabled", args: nil, expected: tlspolicy.Disabled},
		{name: "one-way", args: []string{"--ssl-one-way-authentication-enabled"}, expected: tlspolicy.OneWay},
		{name: "two-way", args: []string{"--ssl-two-way-authentication-enabled"}, expected: tlspolicy.TwoWay},
		{
			name:     "two-way wins",
			args:     []string{"--ssl-one-way-authentication-enabled", "--ssl-two-way-authentication-enabled"},
			expected: tlspolicy.TwoWay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cli testCLI
			parse(t, &cli, tt.args)

			ssl, err := cli.SSL.SSL()
			require.NoError(t, err)
			require.Equal(t, tt.expected, ssl.Policy())
		})
	}
}

func TestSSLFlags_Stores(t *testing.T) {
	var cli testCLI
	parse(t, &cli, []string{
		"--ssl-key-store", "server.jks",
		"--ssl-key-store-password", "secret",
		"--ssl-key-store-type", "jks",
		"--ssl-key-alias", "server",
		"--ssl-trust-store", "trust.p12",
		"--ssl-trust-store-password", "changeit",
	})

	ssl, err := cli.SSL.SSL()
	require.NoError(t, err)
	require.Equal(t, truststore.Store{Path: "server.jks", Password: "secret", Format: truststore.FormatJKS, Alias: "server"}, ssl.KeyStore())
	require.Equal(t, truststore.Store{Path: "trust.p12", Password: "changeit", Format: truststore.FormatAuto}, ssl.TrustStore())
	require.NotContains(t, ssl.String(), "secret")
	require.NotContains(t, ssl.String(), "changeit")
}

func TestSSLFlags_Env(t *testing.T) {
	t.Setenv("TEST_SSL_TWO_WAY_AUTHENTICATION_ENABLED", "true")
	t.Setenv("TEST_SSL_KEY_STORE", "from-env.p12")

	var cli testCLI
	parse(t, &cli, nil)

	ssl, err := cli.SSL.SSL()
	require.NoError(t, err)
	require.Equal(t, tlspolicy.TwoWay, ssl.Policy())
	require.Equal(t, "from-env.p12", ssl.KeyStore().Path)
}

func TestYAML(t *testing.T) {
	const doc = `
listen: 0.0.0.0:9443
ssl:
  one-way-authentication-enabled: true
  key-store: server.p12
  key_store_password: changeit
ssl.trust-store: trust.pem
`
	resolver, err := YAML(strings.NewReader(doc))
	require.NoError(t, err)

	t.Run("file values apply", func(t *testing.T) {
		var cli testCLI
		parse(t, &cli, nil, kong.Resolvers(resolver))

		require.Equal(t, "0.0.0.0:9443", cli.Listen)
		require.True(t, cli.SSL.OneWayAuthenticationEnabled)
		require.Equal(t, "server.p12", cli.SSL.KeyStore)
		require.Equal(t, "changeit", cli.SSL.KeyStorePassword)
		require.Equal(t, "trust.pem", cli.SSL.TrustStore)
	})

	t.Run("flags override file", func(t *testing.T) {
		var cli testCLI
		parse(t, &cli, []string{"--ssl-key-store", "override.p12"}, kong.Resolvers(resolver))

		require.Equal(t, "override.p12", cli.SSL.KeyStore)
	})
}

func TestYAML_Empty(t *testing.T) {
	resolver, err := YAML(strings.NewReader(""))
	require.NoError(t, err)

	var cli testCLI
	parse(t, &cli, nil, kong.Resolvers(resolver))
	require.Equal(t, "localhost:8443", cli.Listen)
}

func TestYAML_Invalid(t *testing.T) {
	_, err := YAML(strings.NewReader("ssl: [unclosed"))
	require.Error(t, err)
}
