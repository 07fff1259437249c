// Package bootstrap turns startup configuration into a TLS context.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/twowayssl/internal/config"
	"github.com/wolfeidau/twowayssl/internal/tlsctx"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

// TLSContext loads the materials the configured policy needs and builds the
// context. Any failure must abort startup.
func TLSContext(ctx context.Context, role tlsctx.Role, ssl config.SSL, loader *truststore.Loader, logger zerolog.Logger) (*tlsctx.Context, error) {
	materials, err := Load(ctx, role, ssl, loader, logger)
	if err != nil {
		return nil, err
	}

	tc, err := materials.Build()
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("role", role.String()).
		Str("policy", tc.Policy().String()).
		Bool("tls", tc.Enabled()).
		Msg("TLS context built")

	return tc, nil
}

// Load reads every configured store when TLS is enabled. Nothing is read when
// the policy is disabled. A store the policy needs but that is not configured
// is a ConfigError returned before any store is read, so a caller that builds
// lazily still fails at startup.
func Load(ctx context.Context, role tlsctx.Role, ssl config.SSL, loader *truststore.Loader, logger zerolog.Logger) (*Materials, error) {
	materials := &Materials{Role: role, Policy: ssl.Policy()}

	logger.Debug().Str("role", role.String()).Stringer("ssl", ssl).Msg("loading TLS material")

	if !materials.Policy.Enabled() {
		return materials, nil
	}

	if err := tlsctx.Require(role, materials.Policy, ssl.KeyStore().Configured(), ssl.TrustStore().Configured()); err != nil {
		return nil, err
	}

	if ssl.KeyStore().Configured() {
		cred, err := loader.LoadCredential(ctx, ssl.KeyStore())
		if err != nil {
			return nil, fmt.Errorf("%s key store: %w", role, err)
		}
		materials.Credential = cred
	}

	if ssl.TrustStore().Configured() {
		anchors, err := loader.LoadTrustAnchors(ctx, ssl.TrustStore())
		if err != nil {
			return nil, fmt.Errorf("%s trust store: %w", role, err)
		}
		materials.Anchors = anchors
	}

	return materials, nil
}
