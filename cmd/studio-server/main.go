// Package main runs the studio HTTP API: upload sessions, storage-node
// funding and the token metadata reader.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-token-studio/internal/api"
	"solana-token-studio/internal/app"
	"solana-token-studio/internal/config"
	"solana-token-studio/internal/logger"
	"solana-token-studio/internal/notify"
	"solana-token-studio/internal/observability"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("TOKEN_STUDIO_CONFIG"), "Directory containing config.yaml")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) (err error) {
	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	stores, closeStores, err := app.OpenStores(ctx, cfg.Storage, metrics, log)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer func() { err = multierr.Append(err, closeStores()) }()

	signer, err := app.NewSigner(ctx, cfg.Wallet)
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	log.Info("wallet connected", zap.String("address", signer.PublicKey()))

	providers := app.NewProviders(cfg.Network, log)
	defer func() { err = multierr.Append(err, providers.Close()) }()

	opts, err := app.UploadOptions(app.Deps{
		Config:    cfg,
		Signer:    signer,
		Stores:    stores,
		Providers: providers,
		Metrics:   metrics,
		Notifier:  notify.NewLogNotifier(log, metrics),
		Logger:    log,
	})
	if err != nil {
		return err
	}

	readers, err := app.NewMetadataReaders(cfg, metrics, log)
	if err != nil {
		return err
	}

	handler := api.NewServer(api.Config{
		SessionTTL:      cfg.Cache.SessionTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
		MaxImageBytes:   cfg.Server.MaxImageBytes,
	}, opts, readers)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
