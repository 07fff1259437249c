package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/wolfeidau/twowayssl/cmd/client/internal/commands"
	"github.com/wolfeidau/twowayssl/internal/config"
)

var (
	version = "dev"
	cli     struct {
		Serve   commands.ServeCmd `cmd:"" help:"Serve /callApi, relaying the server greeting"`
		Call    commands.CallCmd  `cmd:"" help:"Call the server once and print the response body"`
		Config  kong.ConfigFlag   `help:"Load configuration from a YAML file."`
		Debug   bool              `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("client"),
		kong.Vars{
			"version": version,
		},
		kong.Configuration(config.YAML),
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
