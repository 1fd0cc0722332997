// Package main is the entry point for the shorthand CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/shorthand/internal/cli"
)

// Version is set by the build.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := cli.NewRootCommand()
	root.Version = Version

	err := root.ExecuteContext(ctx)
	if err != nil {
		// Commands write their own report to stdout; stderr gets the summary.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
