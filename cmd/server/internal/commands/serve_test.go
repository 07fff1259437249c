package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/twowayssl/internal/config"
	"github.com/wolfeidau/twowayssl/internal/tlserr"
)

func TestServeCmd_IncompleteConfigAbortsStartup(t *testing.T) {
	tests := []struct {
		name string
		ssl  config.SSLFlags
	}{
		{name: "one-way without key store", ssl: config.SSLFlags{OneWayAuthenticationEnabled: true}},
		{name: "two-way without trust store", ssl: config.SSLFlags{TwoWayAuthenticationEnabled: true, KeyStore: "/does/not/exist.p12"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cmd := &ServeCmd{Listen: "127.0.0.1:0", SSL: tt.ssl}
			err := cmd.Run(ctx, &Globals{Version: "test"})
			require.ErrorIs(t, err, tlserr.ErrConfig)
			require.NoError(t, ctx.Err())
		})
	}
}
