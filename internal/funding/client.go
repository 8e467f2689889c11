// Package funding keeps a wallet's prepaid balance on a Bundlr node topped up
// before uploads.
package funding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-token-studio/internal/bundlr"
	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/idhash"
	"solana-token-studio/internal/observability"
	"solana-token-studio/internal/solana"
	"solana-token-studio/internal/storage"
	"solana-token-studio/internal/wallet"
)

// TransferFee is the base signature fee reserved when checking the wallet
// can cover a transfer.
const TransferFee domain.Lamports = 5000

var (
	// ErrInsufficientAfterFunding is returned when the node balance is still
	// below the required amount after a top-up.
	ErrInsufficientAfterFunding = errors.New("insufficient balance after funding")

	// ErrInsufficientWallet is returned when the wallet cannot pay for a top-up.
	ErrInsufficientWallet = errors.New("wallet balance too low to fund storage node")

	// ErrSignerNotConnected is returned when Initialize gets a disconnected signer.
	ErrSignerNotConnected = errors.New("wallet signer not connected")

	// ErrNoAddress is returned when the node advertises no deposit address.
	ErrNoAddress = bundlr.ErrNoAddress
)

// Node is the storage node surface the client needs. *bundlr.Client implements it.
type Node interface {
	URL() string
	Address(ctx context.Context) (string, error)
	Price(ctx context.Context, n int64) (domain.Lamports, error)
	Balance(ctx context.Context, addr string) (domain.Lamports, error)
	SubmitFundTx(ctx context.Context, signature string) error
}

var _ Node = (*bundlr.Client)(nil)

// Options configures Initialize.
type Options struct {
	// RPC is the Solana provider paired with the bundler. Required.
	RPC solana.RPCClient
	// Node overrides the bundlr client built from the endpoint URL.
	Node Node
	// Confirmer waits for the transfer. Defaults to polling RPC.
	Confirmer solana.Confirmer
	// Margin defaults to DefaultMarginPolicy.
	Margin *MarginPolicy
	// Store records funding events when set.
	Store   storage.FundingEventStore
	Metrics *observability.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Client is an initialised funding client bound to one bundler and one wallet.
type Client struct {
	endpoint  domain.BundlerEndpoint
	signer    wallet.Signer
	owner     solana.PublicKey
	address   string
	addrKey   solana.PublicKey
	rpc       solana.RPCClient
	node      Node
	confirmer solana.Confirmer
	margin    MarginPolicy
	store     storage.FundingEventStore
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time

	// fundMu serialises top-ups so two checks never both fund the same shortfall.
	fundMu sync.Mutex
}

// Initialize verifies the signer, the node and the RPC provider and returns a
// ready client. On any failure no client is returned and the call may be repeated.
func Initialize(ctx context.Context, endpoint domain.BundlerEndpoint, signer wallet.Signer, opts Options) (*Client, error) {
	if signer == nil || signer.PublicKey() == "" {
		return nil, ErrSignerNotConnected
	}
	owner, err := solana.ParsePublicKey(signer.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("wallet address: %w", err)
	}
	if opts.RPC == nil {
		return nil, errors.New("funding: rpc client is required")
	}

	node := opts.Node
	if node == nil {
		node = bundlr.NewClient(endpoint.URL)
	}

	address, err := node.Address(ctx)
	if err != nil {
		return nil, fmt.Errorf("bundlr address: %w", err)
	}
	if address == "" {
		return nil, ErrNoAddress
	}
	addrKey, err := solana.ParsePublicKey(address)
	if err != nil {
		return nil, fmt.Errorf("bundlr address %q: %w", address, err)
	}

	if err := opts.RPC.GetHealth(ctx); err != nil {
		return nil, fmt.Errorf("rpc provider not ready: %w", err)
	}
	if _, err := opts.RPC.GetBalance(ctx, owner.String()); err != nil {
		return nil, fmt.Errorf("rpc provider not ready: %w", err)
	}

	margin := DefaultMarginPolicy()
	if opts.Margin != nil {
		margin = *opts.Margin
	}
	confirmer := opts.Confirmer
	if confirmer == nil {
		confirmer = solana.NewPollingConfirmer(opts.RPC, 0, 0)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		endpoint:  endpoint,
		signer:    signer,
		owner:     owner,
		address:   address,
		addrKey:   addrKey,
		rpc:       opts.RPC,
		node:      node,
		confirmer: confirmer,
		margin:    margin,
		store:     opts.Store,
		metrics:   opts.Metrics,
		logger:    log.Named("funding").With(zap.String("bundler", endpoint.URL), zap.String("owner", owner.String())),
		now:       now,
	}
	c.logger.Info("funding client initialised", zap.String("node_address", address))
	return c, nil
}

// Endpoint returns the bundler this client is bound to.
func (c *Client) Endpoint() domain.BundlerEndpoint {
	return c.endpoint
}

// Address returns the node's deposit address. Never empty.
func (c *Client) Address() string {
	return c.address
}

// Owner returns the wallet address.
func (c *Client) Owner() string {
	return c.owner.String()
}

// Signer returns the wallet signer.
func (c *Client) Signer() wallet.Signer {
	return c.signer
}

// Node returns the storage node client.
func (c *Client) Node() Node {
	return c.node
}

// EstimateCost quotes the cost of storing n bytes.
func (c *Client) EstimateCost(ctx context.Context, n int64) (domain.Lamports, error) {
	if n < 0 {
		return 0, fmt.Errorf("estimate cost: negative size %d", n)
	}
	cost, err := c.node.Price(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("estimate cost: %w", err)
	}
	return cost, nil
}

// LoadedBalance returns the wallet's prepaid balance on the node.
func (c *Client) LoadedBalance(ctx context.Context) (domain.Lamports, error) {
	bal, err := c.node.Balance(ctx, c.owner.String())
	if err != nil {
		return 0, fmt.Errorf("loaded balance: %w", err)
	}
	return bal, nil
}

// EnsureFunded makes the loaded balance cover required. Nothing is sent when
// it already does; otherwise the shortfall plus the margin for kind is funded.
// Returns the balance after the call.
func (c *Client) EnsureFunded(ctx context.Context, required domain.Lamports, kind domain.ArtifactKind) (domain.Lamports, error) {
	c.fundMu.Lock()
	defer c.fundMu.Unlock()

	before, err := c.LoadedBalance(ctx)
	if err != nil {
		c.metrics.RecordFundingFailure("balance")
		return 0, err
	}
	if before >= required {
		c.metrics.RecordFundingSkipped()
		c.logger.Debug("balance sufficient",
			zap.Stringer("balance", before), zap.Stringer("required", required))
		return before, nil
	}

	amount := required - before + c.margin.For(kind)
	c.logger.Info("funding storage node",
		zap.String("kind", kind.String()),
		zap.Stringer("balance", before),
		zap.Stringer("required", required),
		zap.Stringer("amount", amount))

	sig, err := c.fund(ctx, amount, kind)
	if err != nil {
		return before, err
	}

	after, err := c.LoadedBalance(ctx)
	if err != nil {
		c.metrics.RecordFundingFailure("balance")
		return before, err
	}

	c.record(ctx, &domain.FundingEvent{
		ID:            idhash.ComputeFundingEventID(c.owner.String(), c.endpoint.URL, sig),
		Owner:         c.owner.String(),
		Bundler:       c.endpoint.URL,
		Kind:          kind,
		Required:      required,
		BalanceBefore: before,
		Funded:        amount,
		BalanceAfter:  after,
		TxSignature:   sig,
		CreatedAt:     c.now().UnixMilli(),
	})

	if after < required {
		c.metrics.RecordFundingFailure("insufficient")
		return after, fmt.Errorf("%w: balance %s SOL, required %s SOL", ErrInsufficientAfterFunding, after, required)
	}
	return after, nil
}

// Fund transfers amount from the wallet to the node and registers the
// transfer with the node. Returns the transaction signature. Unlike
// EnsureFunded it tops up unconditionally.
func (c *Client) Fund(ctx context.Context, amount domain.Lamports) (string, error) {
	c.fundMu.Lock()
	defer c.fundMu.Unlock()

	before, err := c.LoadedBalance(ctx)
	if err != nil {
		c.metrics.RecordFundingFailure("balance")
		return "", err
	}
	sig, err := c.fund(ctx, amount, "")
	if err != nil {
		return "", err
	}
	after, err := c.LoadedBalance(ctx)
	if err != nil {
		c.metrics.RecordFundingFailure("balance")
		c.logger.Warn("funded but balance unreadable, not recorded",
			zap.String("signature", sig), zap.Error(err))
		return sig, err
	}

	c.record(ctx, &domain.FundingEvent{
		ID:            idhash.ComputeFundingEventID(c.owner.String(), c.endpoint.URL, sig),
		Owner:         c.owner.String(),
		Bundler:       c.endpoint.URL,
		BalanceBefore: before,
		Funded:        amount,
		BalanceAfter:  after,
		TxSignature:   sig,
		CreatedAt:     c.now().UnixMilli(),
	})
	return sig, nil
}

func (c *Client) fund(ctx context.Context, amount domain.Lamports, kind domain.ArtifactKind) (string, error) {
	if amount == 0 {
		return "", errors.New("fund: amount must be positive")
	}

	walletBal, err := c.rpc.GetBalance(ctx, c.owner.String())
	if err != nil {
		c.metrics.RecordFundingFailure("wallet_balance")
		return "", fmt.Errorf("wallet balance: %w", err)
	}
	if domain.Lamports(walletBal) < amount+TransferFee {
		c.metrics.RecordFundingFailure("wallet_balance")
		return "", fmt.Errorf("%w: have %s SOL, need %s SOL",
			ErrInsufficientWallet, domain.Lamports(walletBal), amount+TransferFee)
	}

	bh, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		c.metrics.RecordFundingFailure("blockhash")
		return "", fmt.Errorf("latest blockhash: %w", err)
	}

	tx, err := solana.NewTransferTransaction(c.owner, c.addrKey, uint64(amount), bh.Hash)
	if err != nil {
		return "", fmt.Errorf("build transfer: %w", err)
	}
	if err := tx.Sign(ctx, c.signer); err != nil {
		c.metrics.RecordFundingFailure("sign")
		return "", fmt.Errorf("sign transfer: %w", err)
	}
	raw, err := tx.Base64()
	if err != nil {
		return "", fmt.Errorf("encode transfer: %w", err)
	}

	sig, err := c.rpc.SendTransaction(ctx, raw)
	if err != nil {
		c.metrics.RecordFundingFailure("send")
		return "", fmt.Errorf("send transfer: %w", err)
	}

	start := c.now()
	if err := c.confirmer.Confirm(ctx, sig); err != nil {
		c.metrics.RecordFundingFailure("confirm")
		return "", fmt.Errorf("confirm transfer %s: %w", sig, err)
	}
	elapsed := c.now().Sub(start).Seconds()

	if err := c.node.SubmitFundTx(ctx, sig); err != nil {
		c.metrics.RecordFundingFailure("submit")
		return "", fmt.Errorf("register transfer %s: %w", sig, err)
	}

	c.metrics.RecordFunding(kind.String(), uint64(amount), elapsed)
	c.logger.Info("storage node funded", zap.String("signature", sig), zap.Stringer("amount", amount))
	return sig, nil
}

func (c *Client) record(ctx context.Context, e *domain.FundingEvent) {
	if c.store == nil {
		return
	}
	if err := c.store.Insert(ctx, e); err != nil {
		c.logger.Warn("record funding event", zap.String("signature", e.TxSignature), zap.Error(err))
	}
}
