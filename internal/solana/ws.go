package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SignatureSubscribe waits for a transaction signature to reach the
	// confirmed commitment. The channel yields exactly one result, then closes.
	SignatureSubscribe(ctx context.Context, signature string) (<-chan SignatureResult, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureResult is the outcome of a signature subscription.
type SignatureResult struct {
	Slot int64
	Err  interface{} // transaction error, nil on success
	// ConnErr is set when the connection dropped before a notification arrived.
	ConnErr error
}
