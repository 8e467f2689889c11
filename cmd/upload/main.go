// Package main uploads a token image and its metadata document from the
// command line and prints the permanent URLs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"solana-token-studio/internal/app"
	"solana-token-studio/internal/config"
	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/logger"
	"solana-token-studio/internal/notify"
	"solana-token-studio/internal/observability"
	"solana-token-studio/internal/upload"
)

type flags struct {
	configPath string
	image      string
	bundlerID  int
	imageOnly  bool
	fields     domain.FormFields
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", os.Getenv("TOKEN_STUDIO_CONFIG"), "Directory containing config.yaml")
	flag.StringVar(&f.image, "image", "", "Path to the token image (required)")
	flag.IntVar(&f.bundlerID, "bundler", 0, "Bundler id (overrides network.bundler_id)")
	flag.BoolVar(&f.imageOnly, "image-only", false, "Upload the image and stop")
	flag.StringVar(&f.fields.Name, "name", "", "Token name")
	flag.StringVar(&f.fields.Symbol, "symbol", "", "Token symbol")
	flag.StringVar(&f.fields.Description, "description", "", "Token description")
	flag.StringVar(&f.fields.Website, "website", "", "Project website")
	flag.StringVar(&f.fields.Twitter, "twitter", "", "Twitter handle or URL")
	flag.StringVar(&f.fields.Telegram, "telegram", "", "Telegram link")
	flag.StringVar(&f.fields.Discord, "discord", "", "Discord invite")
	flag.Parse()

	if f.image == "" {
		fmt.Fprintln(os.Stderr, "--image is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if f.bundlerID != 0 {
		cfg.Network.BundlerID = f.bundlerID
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := run(ctx, cfg, f, log)
	if err != nil {
		log.Error("upload failed", zap.Error(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(result)
}

type result struct {
	ImageURL    string `json:"image_url"`
	MetadataURL string `json:"metadata_url,omitempty"`
}

func run(ctx context.Context, cfg *config.Config, f flags, log *zap.Logger) (res result, err error) {
	data, err := os.ReadFile(f.image)
	if err != nil {
		return res, fmt.Errorf("read image: %w", err)
	}

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	stores, closeStores, err := app.OpenStores(ctx, cfg.Storage, metrics, log)
	if err != nil {
		return res, err
	}
	defer func() { err = multierr.Append(err, closeStores()) }()

	signer, err := app.NewSigner(ctx, cfg.Wallet)
	if err != nil {
		return res, fmt.Errorf("wallet: %w", err)
	}

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
		return res, err
	}

	s := upload.NewSession("cli", opts)
	if err := s.SelectNetwork(cfg.Network.Cluster); err != nil {
		return res, err
	}
	if err := s.SelectBundler(cfg.Network.BundlerID); err != nil {
		return res, err
	}
	if err := s.Connect(ctx); err != nil {
		return res, err
	}

	if err := s.StageImage(filepath.Base(f.image), data); err != nil {
		return res, err
	}
	if res.ImageURL, err = s.UploadImage(ctx); err != nil {
		return res, err
	}
	if res.ImageURL == "" {
		return res, errors.New("image upload produced no url")
	}
	if f.imageOnly {
		return res, nil
	}

	err = s.UpdateFields(map[string]string{
		"name":        f.fields.Name,
		"symbol":      f.fields.Symbol,
		"description": f.fields.Description,
		"website":     f.fields.Website,
		"twitter":     f.fields.Twitter,
		"telegram":    f.fields.Telegram,
		"discord":     f.fields.Discord,
	})
	if err != nil {
		return res, err
	}

	res.MetadataURL, err = s.UploadMetadata(ctx)
	return res, err
}
