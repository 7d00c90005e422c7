package main

import (
	"fmt"
	"os"

	app "github.com/valter-silva-au/runboard/internal"
	"github.com/valter-silva-au/runboard/internal/cli"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	cli.Initializer = func(opts cli.Options) (func() error, error) {
		a, err := app.NewApp(app.ResolveBasePath(), app.Options{
			ConfigFile: opts.ConfigFile,
			BaseDir:    opts.BaseDir,
			LogLevel:   opts.LogLevel,
		})
		if err != nil {
			return nil, err
		}
		return a.Close, nil
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
