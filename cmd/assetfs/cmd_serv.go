package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs"
	"github.com/jackfish212/assetfs/internal/dirwatch"
	"github.com/jackfish212/assetfs/internal/server"
)

var (
	servAddr  string
	servWatch bool
)

func servCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"serv"},
		Short:   "Run the asset server",
		RunE:    cmdServ,
	}
	c.Flags().StringVar(&servAddr, "addr", "", "Listen address (default from ASSETFS_SERVER_HOST and ASSETFS_SERVER_PORT)")
	c.Flags().BoolVar(&servWatch, "watch", false, "Rebuild when a mounted directory changes")
	return c
}

func cmdServ(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.restore(ctx); err != nil {
		return err
	}

	addr := servAddr
	if addr == "" {
		addr = cfg.Addr()
	}
	srv := server.New(a.manager,
		server.WithLogger(log.Named("server")),
		server.WithMetrics(a.metrics),
		server.WithDropOptions(assetfs.DropOptions{Multiple: cfg.MultipleDrop}),
		server.WithDevelopment(cfg.Log.Development),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, addr) })
	if servWatch || cfg.Watch {
		w := dirwatch.New(a.manager, dirwatch.WithLogger(log.Named("dirwatch")))
		g.Go(func() error { return w.Run(ctx) })
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
