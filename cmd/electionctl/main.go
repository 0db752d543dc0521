package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcelojr/e-voting/internal/app/cli"
	"github.com/marcelojr/e-voting/internal/app/wire"
	"github.com/marcelojr/e-voting/internal/platform/config"
	"github.com/marcelojr/e-voting/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	load := func(ctx context.Context) (cli.Backend, func() error, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		logger.SetLevel(cfg.LogLevel)
		app, err := wire.Build(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return cli.FromContainer(app), app.Close, nil
	}

	if err := cli.NewRootCmd(load).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
