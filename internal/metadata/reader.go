package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/observability"
	"solana-token-studio/internal/solana"
)

// maxDocumentBytes caps the off-chain JSON read.
const maxDocumentBytes = 1 << 20

// ErrInvalidTokenAddress is the single error every read failure collapses into.
var ErrInvalidTokenAddress = errors.New(MsgInvalidTokenAddress)

// ReadError carries the underlying cause of a failed read. Its message is
// always MsgInvalidTokenAddress; the cause is reachable with errors.Is/As.
type ReadError struct {
	Address string
	Cause   error
}

func (e *ReadError) Error() string {
	return MsgInvalidTokenAddress
}

func (e *ReadError) Unwrap() []error {
	return []error{ErrInvalidTokenAddress, e.Cause}
}

// Reader resolves display metadata for a token mint.
type Reader struct {
	rpc     solana.RPCClient
	client  *http.Client
	cache   *cache.Cache
	metrics *observability.Metrics
	logger  *zap.Logger
}

// ReaderOption configures Reader.
type ReaderOption func(*Reader)

// WithHTTPClient sets the client used for the off-chain document.
func WithHTTPClient(c *http.Client) ReaderOption {
	return func(r *Reader) {
		r.client = c
	}
}

// WithCache caches successful reads per address.
func WithCache(ttl, cleanup time.Duration) ReaderOption {
	return func(r *Reader) {
		r.cache = cache.New(ttl, cleanup)
	}
}

// WithMetrics records read outcomes.
func WithMetrics(m *observability.Metrics) ReaderOption {
	return func(r *Reader) {
		r.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReader creates a Reader on top of an RPC provider.
func NewReader(rpc solana.RPCClient, opts ...ReaderOption) *Reader {
	r := &Reader{
		rpc:    rpc,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("metadata")
	return r
}

// FetchMetadata derives the metadata account of address, decodes it and
// resolves the display image from the off-chain document when the account
// carries a URI. Every failure is a *ReadError.
func (r *Reader) FetchMetadata(ctx context.Context, address string) (*domain.DisplayMetadata, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(address); ok {
			r.metrics.RecordMetadataRead("ok", true)
			dm := *v.(*domain.DisplayMetadata)
			return &dm, nil
		}
	}

	dm, err := r.fetch(ctx, address)
	if err != nil {
		r.metrics.RecordMetadataRead("error", false)
		r.logger.Debug("metadata read failed", zap.String("address", address), zap.Error(err))
		return nil, &ReadError{Address: address, Cause: err}
	}

	r.metrics.RecordMetadataRead("ok", false)
	if r.cache != nil {
		cp := *dm
		r.cache.SetDefault(address, &cp)
	}
	return dm, nil
}

func (r *Reader) fetch(ctx context.Context, address string) (*domain.DisplayMetadata, error) {
	mint, err := solana.ParsePublicKey(address)
	if err != nil {
		return nil, err
	}

	pda, err := solana.MetadataAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive metadata account: %w", err)
	}

	info, err := r.rpc.GetAccountInfo(ctx, pda.String())
	if err != nil {
		return nil, fmt.Errorf("get metadata account: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("metadata account %s not found", pda)
	}

	raw, err := info.Bytes()
	if err != nil {
		return nil, err
	}
	onChain, err := DecodeAccount(raw)
	if err != nil {
		return nil, err
	}

	dm := &domain.DisplayMetadata{
		Mint:                 mint.String(),
		MetadataAccount:      pda.String(),
		UpdateAuthority:      onChain.UpdateAuthority,
		Name:                 onChain.Name,
		Symbol:               onChain.Symbol,
		URI:                  onChain.URI,
		SellerFeeBasisPoints: onChain.SellerFeeBasisPoints,
	}

	// URI is already cut at the first NUL, so an all-NUL field is empty here.
	if dm.URI == "" {
		return dm, nil
	}

	image, err := r.fetchImage(ctx, dm.URI)
	if err != nil {
		return nil, fmt.Errorf("fetch off-chain document: %w", err)
	}
	if image != "" {
		dm.Image = &image
	}
	return dm, nil
}

func (r *Reader) fetchImage(ctx context.Context, uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("unsupported uri %q", uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var doc struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentBytes)).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode document: %w", err)
	}
	return doc.Image, nil
}
