package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/twowayssl/internal/bootstrap"
	"github.com/wolfeidau/twowayssl/internal/config"
	"github.com/wolfeidau/twowayssl/internal/logger"
	"github.com/wolfeidau/twowayssl/internal/server"
	"github.com/wolfeidau/twowayssl/internal/tlsctx"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

type ServeCmd struct {
	Listen    string                `help:"listen address" default:"localhost:8443" env:"SERVER_LISTEN"`
	SSL       config.SSLFlags       `embed:"" prefix:"ssl-" envprefix:"SERVER_SSL_"`
	Telemetry config.TelemetryFlags `embed:"" envprefix:"SERVER_"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	defer setupTelemetry(ctx, c.Telemetry, globals.Version, log)()

	ssl, err := c.SSL.SSL()
	if err != nil {
		return fmt.Errorf("invalid ssl configuration: %w", err)
	}

	loader := truststore.NewLoader(truststore.WithLogger(log))
	tc, err := bootstrap.TLSContext(ctx, tlsctx.RoleServer, ssl, loader, log)
	if err != nil {
		return fmt.Errorf("failed to build server TLS context: %w", err)
	}

	return server.New(c.Listen, tc, server.WithLogger(log)).ListenAndServe(ctx)
}
