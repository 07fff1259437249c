package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wolfeidau/twowayssl/internal/bootstrap"
	"github.com/wolfeidau/twowayssl/internal/client"
	"github.com/wolfeidau/twowayssl/internal/config"
	"github.com/wolfeidau/twowayssl/internal/logger"
	"github.com/wolfeidau/twowayssl/internal/tlsctx"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

type ServeCmd struct {
	Listen    string                `help:"listen address for the relay endpoint" default:"localhost:8080" env:"CLIENT_LISTEN"`
	Upstream  UpstreamFlags         `embed:""`
	Telemetry config.TelemetryFlags `embed:"" envprefix:"CLIENT_"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting client")

	defer setupTelemetry(ctx, c.Telemetry, globals.Version, log)()

	ssl, err := c.Upstream.SSL.SSL()
	if err != nil {
		return fmt.Errorf("invalid ssl configuration: %w", err)
	}

	// stores are checked and read now, the context is built on first call
	loader := truststore.NewLoader(truststore.WithLogger(log))
	materials, err := bootstrap.Load(ctx, tlsctx.RoleClient, ssl, loader, log)
	if err != nil {
		return fmt.Errorf("failed to load client TLS material: %w", err)
	}

	provider := tlsctx.NewProvider(func() (*tlsctx.Context, error) {
		tc, err := materials.Build()
		if err != nil {
			return nil, err
		}
		log.Info().Str("policy", tc.Policy().String()).Bool("tls", tc.Enabled()).Msg("TLS context built")
		return tc, nil
	})
	connector := client.NewConnector(provider, c.Upstream.Endpoint, append(c.Upstream.options(), client.WithLogger(log))...)

	mux := http.NewServeMux()
	mux.Handle("GET "+client.RelayPath, client.RelayHandler(connector))

	srv := configureHTTPServer(c.Listen, otelhttp.NewHandler(logger.Requests(log, mux), "twowayssl.client"))
	srv.ErrorLog = logger.ErrorLog(log)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("endpoint", c.Upstream.Endpoint).Msg("client listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("client server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown client server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
