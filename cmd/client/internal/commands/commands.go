package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/twowayssl/internal/client"
	"github.com/wolfeidau/twowayssl/internal/config"
	"github.com/wolfeidau/twowayssl/internal/telemetry"
	"github.com/wolfeidau/twowayssl/internal/tlserr"
)

type Globals struct {
	Debug   bool
	Version string
}

// UpstreamFlags configure the call to the server. They are shared by every
// client command.
type UpstreamFlags struct {
	Endpoint string          `help:"server greeting endpoint" default:"https://localhost:8443/hello" env:"CLIENT_ENDPOINT"`
	Timeout  time.Duration   `help:"timeout for one call including retries" default:"30s" env:"CLIENT_TIMEOUT"`
	MaxTries uint            `help:"attempts made while the server cannot be dialed" default:"1" env:"CLIENT_MAX_TRIES"`
	SSL      config.SSLFlags `embed:"" prefix:"ssl-" envprefix:"CLIENT_SSL_"`
}

func (f UpstreamFlags) options() []client.Option {
	return []client.Option{
		client.WithTimeout(f.Timeout),
		client.WithMaxTries(f.MaxTries),
	}
}

func setupTelemetry(ctx context.Context, flags config.TelemetryFlags, version string, log zerolog.Logger) func() {
	return telemetry.Start(ctx, flags.Enabled, telemetry.Config{
		ServiceName: "twowayssl-client",
		Version:     version,
		SampleRatio: flags.SampleRatio,
	}, log)
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// exitError sets the process exit code reported by kong.
type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

const (
	exitHandshake = 2
	exitHTTP      = 3
)

// withExitCode distinguishes handshake failures from HTTP failures in the exit
// status.
func withExitCode(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tlserr.ErrHandshake):
		return &exitError{err: err, code: exitHandshake}
	case errors.Is(err, tlserr.ErrHTTP):
		return &exitError{err: err, code: exitHTTP}
	default:
		return err
	}
}
