// Package stub provides an in-memory Bundlr node for tests.
package stub

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"solana-token-studio/internal/bundlr"
	"solana-token-studio/internal/domain"
	solanastub "solana-token-studio/internal/solana/stub"
)

// ErrUnknownTx is returned by SubmitFundTx for a signature the chain never saw.
var ErrUnknownTx = errors.New("unknown funding transaction")

// Node is an in-memory storage node. Transfers observed on an attached stub
// RPC become creditable; SubmitFundTx credits them unless DropCredits is set.
type Node struct {
	mu sync.Mutex

	BaseURL       string
	DepositAddr   string
	PricePerByte  domain.Lamports
	BasePrice     domain.Lamports
	Balances      map[string]domain.Lamports
	DropCredits   bool
	UploadErr     error
	AddressErr    error
	BalanceErr    error
	pendingCredit map[string]transfer

	Uploads     []bundlr.UploadRequest
	PriceCalls  int
	FundCalls   int
	UploadCalls int
}

type transfer struct {
	owner  string
	amount domain.Lamports
}

// NewNode creates a node advertising depositAddr.
func NewNode(depositAddr string) *Node {
	return &Node{
		BaseURL:       "https://devnet.bundlr.network",
		DepositAddr:   depositAddr,
		PricePerByte:  1000,
		Balances:      make(map[string]domain.Lamports),
		pendingCredit: make(map[string]transfer),
	}
}

// Attach observes transactions sent through rpc. The owner is the fee payer
// and the amount is read from the transfer instruction.
func (n *Node) Attach(rpc *solanastub.RPCClient, owner string) {
	rpc.OnSend = func(txBase64 string) {
		raw, err := base64.StdEncoding.DecodeString(txBase64)
		if err != nil || len(raw) < 8 {
			return
		}
		amount := domain.Lamports(binary.LittleEndian.Uint64(raw[len(raw)-8:]))
		sig := solanastub.SignatureFor(rpc.SentCount())

		n.mu.Lock()
		n.pendingCredit[sig] = transfer{owner: owner, amount: amount}
		n.mu.Unlock()
	}
}

// URL implements funding.Node.
func (n *Node) URL() string {
	return n.BaseURL
}

// Address implements funding.Node.
func (n *Node) Address(_ context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.AddressErr != nil {
		return "", n.AddressErr
	}
	if n.DepositAddr == "" {
		return "", bundlr.ErrNoAddress
	}
	return n.DepositAddr, nil
}

// Price implements funding.Node.
func (n *Node) Price(_ context.Context, size int64) (domain.Lamports, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.PriceCalls++
	return n.BasePrice + n.PricePerByte*domain.Lamports(size), nil
}

// Balance implements funding.Node.
func (n *Node) Balance(_ context.Context, addr string) (domain.Lamports, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.BalanceErr != nil {
		return 0, n.BalanceErr
	}
	return n.Balances[addr], nil
}

// SubmitFundTx implements funding.Node.
func (n *Node) SubmitFundTx(_ context.Context, signature string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.FundCalls++

	t, ok := n.pendingCredit[signature]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTx, signature)
	}
	delete(n.pendingCredit, signature)
	if !n.DropCredits {
		n.Balances[t.owner] += t.amount
	}
	return nil
}

// Upload stores the request, charges the owner the quoted price and returns
// a deterministic id.
func (n *Node) Upload(_ context.Context, req bundlr.UploadRequest) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.UploadCalls++

	if n.UploadErr != nil {
		return "", n.UploadErr
	}
	cost := n.BasePrice + n.PricePerByte*domain.Lamports(len(req.Data))
	if n.Balances[req.Owner] < cost {
		return "", &bundlr.StatusError{Op: "upload", Code: 402, Body: "Not enough balance for transaction"}
	}
	n.Balances[req.Owner] -= cost

	n.Uploads = append(n.Uploads, req)
	return fmt.Sprintf("tx%d", len(n.Uploads)), nil
}

// SetBalance sets a prepaid balance.
func (n *Node) SetBalance(addr string, l domain.Lamports) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Balances[addr] = l
}
