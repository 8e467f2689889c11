// Package network holds the static cluster and bundler catalogue and the
// user's current selection.
package network

import (
	"errors"
	"strings"

	"solana-token-studio/internal/domain"
)

var (
	// ErrUnknownCluster is returned for a cluster name outside the catalogue.
	ErrUnknownCluster = errors.New("unknown cluster")

	// ErrUnknownBundler is returned for a bundler id or URL outside the catalogue.
	ErrUnknownBundler = errors.New("unknown bundler")
)

// Default public endpoints.
const (
	DevnetRPC   = "https://api.devnet.solana.com"
	TestnetRPC  = "https://api.testnet.solana.com"
	MainnetRPC  = "https://api.mainnet-beta.solana.com"
	DevnetWS    = "wss://api.devnet.solana.com"
	TestnetWS   = "wss://api.testnet.solana.com"
	MainnetWS   = "wss://api.mainnet-beta.solana.com"
	MainnetNode = "https://node1.bundlr.network"
	DevnetNode  = "https://devnet.bundlr.network"
)

var clusters = []domain.ClusterEndpoint{
	{Cluster: domain.ClusterDevnet, RPCURL: DevnetRPC, WSURL: DevnetWS},
	{Cluster: domain.ClusterTestnet, RPCURL: TestnetRPC, WSURL: TestnetWS},
	{Cluster: domain.ClusterMainnet, RPCURL: MainnetRPC, WSURL: MainnetWS},
}

var bundlers = []domain.BundlerEndpoint{
	{ID: 1, Network: string(domain.ClusterMainnet), URL: MainnetNode},
	{ID: 2, Network: string(domain.ClusterDevnet), URL: DevnetNode},
}

// Clusters returns the known clusters.
func Clusters() []domain.ClusterEndpoint {
	out := make([]domain.ClusterEndpoint, len(clusters))
	copy(out, clusters)
	return out
}

// Bundlers returns the known bundler nodes.
func Bundlers() []domain.BundlerEndpoint {
	out := make([]domain.BundlerEndpoint, len(bundlers))
	copy(out, bundlers)
	return out
}

// ClusterByName looks up a cluster. Matching is case-insensitive; "mainnet" is
// accepted for mainnet-beta.
func ClusterByName(name string) (domain.ClusterEndpoint, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "mainnet" {
		name = string(domain.ClusterMainnet)
	}
	for _, c := range clusters {
		if string(c.Cluster) == name {
			return c, nil
		}
	}
	return domain.ClusterEndpoint{}, ErrUnknownCluster
}

// BundlerByID looks up a bundler by id.
func BundlerByID(id int) (domain.BundlerEndpoint, error) {
	for _, b := range bundlers {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.BundlerEndpoint{}, ErrUnknownBundler
}

// BundlerByURL looks up a bundler by base URL, ignoring a trailing slash.
func BundlerByURL(url string) (domain.BundlerEndpoint, error) {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	for _, b := range bundlers {
		if b.URL == url {
			return b, nil
		}
	}
	return domain.BundlerEndpoint{}, ErrUnknownBundler
}

// ProviderURL returns the RPC provider the bundler must fund and verify
// against. The devnet node only accepts devnet payments; mainnet nodes use
// mainnetRPC, falling back to the public endpoint when empty.
func ProviderURL(b domain.BundlerEndpoint, mainnetRPC string) string {
	if b.Network == string(domain.ClusterDevnet) {
		return DevnetRPC
	}
	if mainnetRPC != "" {
		return mainnetRPC
	}
	return MainnetRPC
}

// WSProviderURL returns the WebSocket counterpart of ProviderURL.
func WSProviderURL(b domain.BundlerEndpoint, mainnetWS string) string {
	if b.Network == string(domain.ClusterDevnet) {
		return DevnetWS
	}
	if mainnetWS != "" {
		return mainnetWS
	}
	return MainnetWS
}
