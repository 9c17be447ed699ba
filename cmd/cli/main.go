// Command cli is the SiteKeeper terminal client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/sitekeeper/internal/buildinfo"
	"github.com/dmitrijs2005/sitekeeper/internal/client/cli"
	"github.com/dmitrijs2005/sitekeeper/internal/client/config"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "sitekeeper:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
