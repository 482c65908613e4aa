package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/foodscan/cmd"
	"github.com/tphakala/foodscan/internal/app"
	"github.com/tphakala/foodscan/internal/buildinfo"
	"github.com/tphakala/foodscan/internal/cli"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	// an interrupt cancels the running command, aborting any scan in flight
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := app.NewRuntime(buildinfo.New(version, buildDate))
	defer rt.Stop()

	if err := cmd.RootCommand(rt).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.Describe(err))
		return 1
	}
	return 0
}
