package commands

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/twowayssl/internal/config"
	"github.com/wolfeidau/twowayssl/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Version string
}

func setupTelemetry(ctx context.Context, flags config.TelemetryFlags, version string, log zerolog.Logger) func() {
	return telemetry.Start(ctx, flags.Enabled, telemetry.Config{
		ServiceName: "twowayssl-server",
		Version:     version,
		SampleRatio: flags.SampleRatio,
	}, log)
}
