package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/wolfeidau/twowayssl/cmd/server/internal/commands"
	"github.com/wolfeidau/twowayssl/internal/config"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag
		Config  kong.ConfigFlag   `help:"Load configuration from a YAML file."`
		Serve   commands.ServeCmd `cmd:"" help:"Serve the greeting endpoint"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("server"),
		kong.Vars{
			"version": version,
		},
		kong.Configuration(config.YAML),
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
