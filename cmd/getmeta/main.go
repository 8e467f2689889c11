// Package main prints the on-chain metadata of a token mint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"solana-token-studio/internal/app"
	"solana-token-studio/internal/config"
	"solana-token-studio/internal/logger"
	"solana-token-studio/internal/metadata"
)

func main() {
	configPath := flag.String("config", os.Getenv("TOKEN_STUDIO_CONFIG"), "Directory containing config.yaml")
	cluster := flag.String("cluster", "", "Cluster to read from (overrides network.cluster)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <mint-address>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *cluster != "" {
		cfg.Network.Cluster = *cluster
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	readers, err := app.NewMetadataReaders(cfg, nil, log)
	if err != nil {
		log.Fatal("metadata reader", zap.Error(err))
	}
	reader, err := readers.For(cfg.Network.Cluster)
	if err != nil {
		log.Fatal("metadata reader", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dm, err := reader.FetchMetadata(ctx, flag.Arg(0))
	if err != nil {
		log.Debug("fetch metadata", zap.Error(err))
		fmt.Fprintln(os.Stderr, metadata.MsgInvalidTokenAddress)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(dm)
}
