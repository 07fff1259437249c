package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/twowayssl/internal/bootstrap"
	"github.com/wolfeidau/twowayssl/internal/client"
	"github.com/wolfeidau/twowayssl/internal/logger"
	"github.com/wolfeidau/twowayssl/internal/tlserr"
	"github.com/wolfeidau/twowayssl/internal/tlsctx"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

type CallCmd struct {
	Upstream UpstreamFlags `embed:""`
}

func (c *CallCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ssl, err := c.Upstream.SSL.SSL()
	if err != nil {
		return fmt.Errorf("invalid ssl configuration: %w", err)
	}

	loader := truststore.NewLoader(truststore.WithLogger(log))
	tc, err := bootstrap.TLSContext(ctx, tlsctx.RoleClient, ssl, loader, log)
	if err != nil {
		return fmt.Errorf("failed to build client TLS context: %w", err)
	}

	cl, err := client.New(tc, c.Upstream.Endpoint, append(c.Upstream.options(), client.WithLogger(log))...)
	if err != nil {
		return err
	}

	resp, err := cl.Get(ctx)
	if err != nil {
		var httpErr *tlserr.HTTPError
		if errors.As(err, &httpErr) {
			_, _ = os.Stderr.Write(httpErr.Body)
		}
		return withExitCode(err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	fmt.Fprintln(os.Stdout)
	return nil
}
