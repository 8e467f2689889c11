package domain

// Cluster is a Solana cluster the wallet and RPC provider are bound to.
type Cluster string

const (
	ClusterDevnet  Cluster = "devnet"
	ClusterTestnet Cluster = "testnet"
	ClusterMainnet Cluster = "mainnet-beta"
)

// String returns the string representation of Cluster.
func (c Cluster) String() string {
	return string(c)
}

// IsValid checks if the cluster is a known value.
func (c Cluster) IsValid() bool {
	return c == ClusterDevnet || c == ClusterTestnet || c == ClusterMainnet
}

// ClusterEndpoint pairs a cluster with its RPC HTTP and WebSocket URLs.
type ClusterEndpoint struct {
	Cluster Cluster
	RPCURL  string
	WSURL   string
}

// BundlerEndpoint is a storage-bundler node chosen from a static set.
type BundlerEndpoint struct {
	ID      int    `json:"id"`
	Network string `json:"network"`
	URL     string `json:"url"`
}
