package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/clientbuild/cmd/clientbuild/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build   commands.BuildCmd  `cmd:"" help:"Bundle the client into the output directory"`
		Config  commands.ConfigCmd `cmd:"" help:"Print the resolved build configuration"`
		CSS     commands.CSSCmd    `cmd:"" name:"css" help:"Run the style pipeline on a single stylesheet"`
		Debug   bool               `help:"Enable debug mode." env:"CLIENTBUILD_DEBUG"`
		Tracing bool               `help:"Export traces and metrics over OTLP." env:"CLIENTBUILD_TRACING"`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("clientbuild"),
		kong.Description("Resolve and run the wallet client build."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Tracing: cli.Tracing, Version: version})
	cmd.FatalIfErrorf(err)
}
