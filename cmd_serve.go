package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/treefix50/showroom/internal/auth"
	"github.com/treefix50/showroom/internal/catalog"
	"github.com/treefix50/showroom/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Scan the library and serve the catalog over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds := auth.Credentials{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
	}
	if err := creds.Validate(); err != nil {
		return err
	}
	if !creds.Enabled() {
		logger.Info("admin endpoints disabled, no password hash configured")
	}

	store, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	lib, err := openLibrary(cfg, store, logger)
	if err != nil {
		return err
	}
	// initial scan
	if _, err := lib.Scan(ctx); err != nil {
		logger.Warn("initial scan incomplete", zap.Error(err))
	}

	srv, err := server.New(server.Options{
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		ScanInterval:      cfg.Library.ScanInterval,
		ScanMinInterval:   cfg.Admin.ScanMinInterval,
		CORS:              cfg.Server.CORS,
	}, server.Deps{
		Collection:  lib,
		Details:     lib,
		Scanner:     lib,
		ScanRuns:    store,
		Credentials: creds,
		Logger:      logger.Named("http"),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return srv.Close()
	})
	if cfg.Library.Watch {
		w := catalog.NewWatcher(lib.Root(), lib, cfg.Library.Debounce, logger.Named("watch"))
		g.Go(func() error { return w.Run(gctx) })
	}
	return g.Wait()
}
