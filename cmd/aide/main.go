package main

import (
	"fmt"
	"os"

	app "github.com/aide-sh/aide/internal"
	"github.com/aide-sh/aide/internal/cli"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	workspace := app.ResolveWorkspace()

	a, err := app.NewApp(workspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing aide: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
