package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-token-studio/internal/solana"
)

// ErrUnhealthy is returned by GetHealth when Healthy is false.
var ErrUnhealthy = errors.New("node unhealthy")

// RPCClient implements solana.RPCClient for testing.
// SendTransaction credits Transfers to Balances so funding flows can be
// exercised without a validator.
type RPCClient struct {
	mu sync.Mutex

	Accounts  map[string]*solana.AccountInfo
	Balances  map[string]uint64
	Statuses  map[string]*solana.SignatureStatus
	Blockhash string
	Healthy   bool

	// SendErr, when set, fails every SendTransaction.
	SendErr error
	// OnSend runs for each submitted transaction after SendErr is checked.
	OnSend func(txBase64 string)

	Sent         []string
	AccountCalls int
	BalanceCalls int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:  make(map[string]*solana.AccountInfo),
		Balances:  make(map[string]uint64),
		Statuses:  make(map[string]*solana.SignatureStatus),
		Blockhash: "11111111111111111111111111111111",
		Healthy:   true,
	}
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AccountCalls++
	return c.Accounts[pubkey], nil
}

// GetBalance returns the stored balance, zero for unknown accounts.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BalanceCalls++
	return c.Balances[pubkey], nil
}

// GetLatestBlockhash returns Blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &solana.Blockhash{Hash: c.Blockhash, LastValidBlockHeight: 100}, nil
}

// SendTransaction records the transaction and marks a synthetic signature confirmed.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	c.mu.Lock()
	if c.SendErr != nil {
		c.mu.Unlock()
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, txBase64)
	sig := SignatureFor(len(c.Sent))
	c.Statuses[sig] = &solana.SignatureStatus{ConfirmationStatus: "confirmed"}
	onSend := c.OnSend
	c.mu.Unlock()

	if onSend != nil {
		onSend(txBase64)
	}
	return sig, nil
}

// GetSignatureStatuses returns stored statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(sigs))
	for i, s := range sigs {
		out[i] = c.Statuses[s]
	}
	return out, nil
}

// GetHealth reports Healthy.
func (c *RPCClient) GetHealth(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.Healthy {
		return ErrUnhealthy
	}
	return nil
}

// SetAccount stores raw account data as base64.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// SetBalance sets an account balance.
func (c *RPCClient) SetBalance(pubkey string, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[pubkey] = lamports
}

// SentCount returns the number of submitted transactions.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

// SignatureFor returns the synthetic signature assigned to the n-th sent transaction.
func SignatureFor(n int) string {
	return fmt.Sprintf("stubsig-%d", n)
}

var _ solana.RPCClient = (*RPCClient)(nil)
