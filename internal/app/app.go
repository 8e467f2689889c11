// Package app wires configuration into the components shared by the binaries.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"solana-token-studio/internal/bundlr"
	"solana-token-studio/internal/config"
	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/funding"
	"solana-token-studio/internal/metadata"
	"solana-token-studio/internal/network"
	"solana-token-studio/internal/notify"
	"solana-token-studio/internal/observability"
	"solana-token-studio/internal/solana"
	"solana-token-studio/internal/storage"
	chstore "solana-token-studio/internal/storage/clickhouse"
	"solana-token-studio/internal/storage/memory"
	"solana-token-studio/internal/storage/migrations"
	pgstore "solana-token-studio/internal/storage/postgres"
	"solana-token-studio/internal/upload"
	"solana-token-studio/internal/wallet"
)

// Stores holds the ledgers.
type Stores struct {
	Artifacts storage.ArtifactStore
	Funding   storage.FundingEventStore
}

// OpenStores opens the configured ledgers and applies migrations. The
// returned cleanup closes every opened connection.
func OpenStores(ctx context.Context, cfg config.StorageConfig, metrics *observability.Metrics, logger *zap.Logger) (*Stores, func() error, error) {
	var closers []func() error
	cleanup := func() error {
		var err error
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
		return err
	}

	stores := &Stores{}

	switch cfg.Backend {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() error { pool.Close(); return nil })

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("postgres migrations: %w", err), cleanup())
		}
		stores.Artifacts = storage.InstrumentArtifacts(pgstore.NewArtifactStore(pool), metrics, "postgres")
		logger.Info("artifact ledger: postgres")
	default:
		stores.Artifacts = storage.InstrumentArtifacts(memory.NewArtifactStore(), metrics, "memory")
		logger.Info("artifact ledger: memory")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("clickhouse migrations: %w", err), cleanup())
		}
		closers = append(closers, conn.Close)
		stores.Funding = storage.InstrumentFundingEvents(chstore.NewFundingEventStore(conn), metrics, "clickhouse")
		logger.Info("funding ledger: clickhouse")
	} else {
		stores.Funding = storage.InstrumentFundingEvents(memory.NewFundingEventStore(), metrics, "memory")
		logger.Info("funding ledger: memory")
	}

	return stores, cleanup, nil
}

// NewSigner builds and connects the configured wallet.
func NewSigner(ctx context.Context, cfg config.WalletConfig) (wallet.Signer, error) {
	kind, err := wallet.ParseKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	signer, err := wallet.New(kind, cfg.Source)
	if err != nil {
		return nil, err
	}
	if err := signer.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect wallet: %w", err)
	}
	return signer, nil
}

// Providers builds and caches one RPC and one WS client per bundler network.
type Providers struct {
	cfg    config.NetworkConfig
	mu     sync.Mutex
	rpc    map[string]solana.RPCClient
	ws     map[string]*solana.WSClientImpl
	logger *zap.Logger
}

// NewProviders creates an empty provider set.
func NewProviders(cfg config.NetworkConfig, logger *zap.Logger) *Providers {
	return &Providers{
		cfg:    cfg,
		rpc:    make(map[string]solana.RPCClient),
		ws:     make(map[string]*solana.WSClientImpl),
		logger: logger,
	}
}

// RPC returns the RPC client paired with b.
func (p *Providers) RPC(b domain.BundlerEndpoint) solana.RPCClient {
	url := network.ProviderURL(b, p.cfg.MainnetRPC)

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.rpc[url]; ok {
		return c
	}
	c := solana.NewHTTPClient(url,
		solana.WithTimeout(p.cfg.RPCTimeout),
		solana.WithMaxRetries(p.cfg.RPCRetries),
	)
	p.rpc[url] = c
	p.logger.Debug("rpc provider", zap.String("bundler", b.URL), zap.String("rpc", url))
	return c
}

// Confirmer returns the confirmation strategy for b: "ws" subscribes,
// "poll" polls signature statuses, "auto" subscribes and falls back to polling.
func (p *Providers) Confirmer(cfg config.FundingConfig) func(domain.BundlerEndpoint, solana.RPCClient) solana.Confirmer {
	return func(b domain.BundlerEndpoint, rpc solana.RPCClient) solana.Confirmer {
		poll := solana.NewPollingConfirmer(rpc, cfg.PollInterval, cfg.PollAttempts)
		if cfg.Confirmation == "poll" {
			return poll
		}

		url := network.WSProviderURL(b, p.cfg.MainnetWS)
		p.mu.Lock()
		ws, ok := p.ws[url]
		if !ok {
			ws = solana.NewWSClient(url, nil)
			p.ws[url] = ws
		}
		p.mu.Unlock()
		if cfg.Confirmation == "ws" {
			return solana.NewWSConfirmer(ws)
		}
		return solana.NewFallbackConfirmer(solana.NewWSConfirmer(ws), poll)
	}
}

// Close closes the WebSocket clients.
func (p *Providers) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for _, ws := range p.ws {
		err = multierr.Append(err, ws.Close())
	}
	return err
}

// Deps are the long-lived components a binary builds from config.
type Deps struct {
	Config    *config.Config
	Signer    wallet.Signer
	Stores    *Stores
	Providers *Providers
	Metrics   *observability.Metrics
	Notifier  notify.Notifier
	Logger    *zap.Logger
}

// UploadOptions builds the session template.
func UploadOptions(d Deps) (upload.Options, error) {
	m, err := d.Config.Funding.Margins()
	if err != nil {
		return upload.Options{}, err
	}
	margin := funding.MarginPolicy{Default: m.Default, Image: m.Image, Metadata: m.Metadata}

	return upload.Options{
		Signer:       d.Signer,
		NodeFor:      func(b domain.BundlerEndpoint) upload.Node { return bundlr.NewClient(b.URL) },
		RPCFor:       d.Providers.RPC,
		ConfirmerFor: d.Providers.Confirmer(d.Config.Funding),
		Margin:       &margin,
		FundingStore: d.Stores.Funding,
		Artifacts:    d.Stores.Artifacts,
		Notifier:     d.Notifier,
		Metrics:      d.Metrics,
		Logger:       d.Logger,
		Gateway:      d.Config.Upload.Gateway,
		Now:          time.Now,
	}, nil
}

// MetadataReaders builds one cached metadata reader per cluster on first use.
type MetadataReaders struct {
	cfg     *config.Config
	metrics *observability.Metrics
	logger  *zap.Logger
	newRPC  func(url string) solana.RPCClient

	mu      sync.Mutex
	readers map[domain.Cluster]*metadata.Reader
}

// NewMetadataReaders checks the default cluster and returns an empty set.
func NewMetadataReaders(cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (*MetadataReaders, error) {
	if _, err := network.ClusterByName(cfg.Network.Cluster); err != nil {
		return nil, fmt.Errorf("default cluster: %w", err)
	}
	return &MetadataReaders{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		newRPC: func(url string) solana.RPCClient {
			return solana.NewHTTPClient(url,
				solana.WithTimeout(cfg.Network.RPCTimeout),
				solana.WithMaxRetries(cfg.Network.RPCRetries),
			)
		},
		readers: make(map[domain.Cluster]*metadata.Reader),
	}, nil
}

// For returns the reader of the named cluster; "" selects network.cluster.
func (m *MetadataReaders) For(name string) (*metadata.Reader, error) {
	if name == "" {
		name = m.cfg.Network.Cluster
	}
	cluster, err := network.ClusterByName(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.readers[cluster.Cluster]; ok {
		return r, nil
	}

	url := cluster.RPCURL
	if cluster.Cluster == domain.ClusterMainnet && m.cfg.Network.MainnetRPC != "" {
		url = m.cfg.Network.MainnetRPC
	}
	r := metadata.NewReader(m.newRPC(url),
		metadata.WithCache(m.cfg.Cache.MetadataTTL, m.cfg.Cache.CleanupInterval),
		metadata.WithMetrics(m.metrics),
		metadata.WithLogger(m.logger),
	)
	m.readers[cluster.Cluster] = r
	if m.logger != nil {
		m.logger.Debug("metadata reader", zap.String("cluster", cluster.Cluster.String()), zap.String("rpc", url))
	}
	return r, nil
}
