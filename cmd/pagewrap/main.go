package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagewrap/cmd/pagewrap/commands"
	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
	"git.home.luguber.info/inful/pagewrap/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("pagewrap"),
		kong.Description("Wrap content pages in a shared header and footer, expanding partial includes."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
