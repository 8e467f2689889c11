// Package config loads service configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/wallet"
)

// EnvPrefix is prepended to every environment override, e.g. TOKEN_STUDIO_SERVER_ADDR.
const EnvPrefix = "TOKEN_STUDIO"

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Network NetworkConfig `mapstructure:"network"`
	Wallet  WalletConfig  `mapstructure:"wallet"`
	Funding FundingConfig `mapstructure:"funding"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxImageBytes int64         `mapstructure:"max_image_bytes"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// NetworkConfig selects the cluster and RPC endpoints.
type NetworkConfig struct {
	Cluster    string        `mapstructure:"cluster"`
	BundlerID  int           `mapstructure:"bundler_id"`
	MainnetRPC string        `mapstructure:"mainnet_rpc"`
	MainnetWS  string        `mapstructure:"mainnet_ws"`
	RPCTimeout time.Duration `mapstructure:"rpc_timeout"`
	RPCRetries int           `mapstructure:"rpc_retries"`
}

// WalletConfig names the signer source.
type WalletConfig struct {
	Kind   string `mapstructure:"kind"`
	Source string `mapstructure:"source"`
}

// FundingConfig holds the funding margin policy and confirmation strategy.
// Margins are decimal SOL strings; empty per-kind margins fall back to Margin.
type FundingConfig struct {
	Margin         string        `mapstructure:"margin"`
	ImageMargin    string        `mapstructure:"image_margin"`
	MetadataMargin string        `mapstructure:"metadata_margin"`
	Confirmation   string        `mapstructure:"confirmation"` // ws, poll or auto
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	PollAttempts   int           `mapstructure:"poll_attempts"`
}

// UploadConfig holds gateway settings.
type UploadConfig struct {
	Gateway string `mapstructure:"gateway"`
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"` // memory or postgres
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

// CacheConfig holds settings for go-cache backed registries.
type CacheConfig struct {
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	MetadataTTL     time.Duration `mapstructure:"metadata_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.max_image_bytes", 10<<20)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("network.cluster", string(domain.ClusterDevnet))
	v.SetDefault("network.bundler_id", 2)
	v.SetDefault("network.mainnet_rpc", "https://api.mainnet-beta.solana.com")
	v.SetDefault("network.mainnet_ws", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("network.rpc_timeout", "30s")
	v.SetDefault("network.rpc_retries", 3)
	v.SetDefault("wallet.kind", string(wallet.KindKeypairFile))
	v.SetDefault("wallet.source", "")
	v.SetDefault("funding.margin", "0.2")
	v.SetDefault("funding.image_margin", "")
	v.SetDefault("funding.metadata_margin", "")
	v.SetDefault("funding.confirmation", "auto")
	v.SetDefault("funding.poll_interval", "1s")
	v.SetDefault("funding.poll_attempts", 60)
	v.SetDefault("upload.gateway", "arweave.net")
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("cache.session_ttl", "2h")
	v.SetDefault("cache.metadata_ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("metrics.namespace", "token_studio")
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if !domain.Cluster(c.Network.Cluster).IsValid() && c.Network.Cluster != "mainnet" {
		return fmt.Errorf("unknown cluster %q", c.Network.Cluster)
	}
	if _, err := wallet.ParseKind(c.Wallet.Kind); err != nil {
		return err
	}
	if _, err := c.Funding.Margins(); err != nil {
		return err
	}
	switch c.Funding.Confirmation {
	case "ws", "poll", "auto":
	default:
		return fmt.Errorf("unknown confirmation strategy %q", c.Funding.Confirmation)
	}
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Upload.Gateway == "" {
		return errors.New("upload.gateway must not be empty")
	}
	return nil
}

// Margins is the parsed margin policy.
type Margins struct {
	Default  domain.Lamports
	Image    *domain.Lamports
	Metadata *domain.Lamports
}

// Margins parses the configured margin strings.
func (f FundingConfig) Margins() (Margins, error) {
	var m Margins
	var err error

	if m.Default, err = domain.ParseSOL(f.Margin); err != nil {
		return m, fmt.Errorf("funding.margin: %w", err)
	}
	if m.Image, err = optionalSOL(f.ImageMargin); err != nil {
		return m, fmt.Errorf("funding.image_margin: %w", err)
	}
	if m.Metadata, err = optionalSOL(f.MetadataMargin); err != nil {
		return m, fmt.Errorf("funding.metadata_margin: %w", err)
	}
	return m, nil
}

func optionalSOL(s string) (*domain.Lamports, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	l, err := domain.ParseSOL(s)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
