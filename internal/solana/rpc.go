package solana

import "context"

// RPCClient defines the Solana RPC HTTP methods used by funding and the
// metadata read path.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key. Returns nil if not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetLatestBlockhash returns a recent blockhash.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits a signed base64 transaction.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses returns statuses for signatures, nil for unknown ones.
	GetSignatureStatuses(ctx context.Context, sigs []string) ([]*SignatureStatus, error)

	// GetHealth returns nil when the node is healthy.
	GetHealth(ctx context.Context) error
}
