// Package bundlr is a client for the REST surface of a Bundlr storage node
// paying in SOL.
package bundlr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"solana-token-studio/internal/domain"
)

// Currency is the payment currency path segment.
const Currency = "solana"

// DefaultTimeout bounds every node request.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of a failed response is kept.
const maxErrorBody = 4096

// ErrNoAddress is returned when the node does not advertise a deposit address.
var ErrNoAddress = errors.New("bundlr address not found")

// StatusError is returned for non-2xx node responses.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bundlr %s: status %d: %s", e.Op, e.Code, e.Body)
}

// Tag is a name/value pair attached to an uploaded blob.
type Tag struct {
	Name  string
	Value string
}

// Client talks to one Bundlr node.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// NewClient creates a client for the node at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the node base URL.
func (c *Client) URL() string {
	return c.baseURL
}

// Address returns the node's SOL deposit address from GET /info.
func (c *Client) Address(ctx context.Context) (string, error) {
	var info struct {
		Addresses map[string]string `json:"addresses"`
	}
	if err := c.getJSON(ctx, "info", "/info", &info); err != nil {
		return "", err
	}

	addr := info.Addresses[Currency]
	if addr == "" {
		return "", ErrNoAddress
	}
	return addr, nil
}

// Price returns the cost in lamports of storing n bytes.
func (c *Client) Price(ctx context.Context, n int64) (domain.Lamports, error) {
	if n < 0 {
		return 0, fmt.Errorf("negative byte count %d", n)
	}

	body, err := c.do(ctx, "price", http.MethodGet, fmt.Sprintf("/price/%s/%d", Currency, n), nil, nil)
	if err != nil {
		return 0, err
	}
	return parseLamports(body)
}

// Balance returns the node-side balance of addr.
func (c *Client) Balance(ctx context.Context, addr string) (domain.Lamports, error) {
	q := url.Values{"address": {addr}}
	var resp struct {
		Balance json.RawMessage `json:"balance"`
	}
	if err := c.getJSON(ctx, "balance", "/account/balance/"+Currency+"?"+q.Encode(), &resp); err != nil {
		return 0, err
	}
	return parseLamports(resp.Balance)
}

// SubmitFundTx notifies the node of a confirmed transfer so it credits the balance.
func (c *Client) SubmitFundTx(ctx context.Context, signature string) error {
	payload, err := json.Marshal(map[string]string{"tx_id": signature})
	if err != nil {
		return fmt.Errorf("marshal fund request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	_, err = c.do(ctx, "fund", http.MethodPost, "/account/balance/"+Currency, payload, headers)
	return err
}

// UploadRequest is a signed blob upload.
type UploadRequest struct {
	Data        []byte
	ContentType string
	Tags        []Tag
	Owner       string
	Signature   []byte
}

// Upload posts a blob and returns the storage transaction id.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if len(req.Data) == 0 {
		return "", errors.New("empty upload")
	}

	headers := map[string]string{
		"Content-Type": req.ContentType,
		"x-owner":      req.Owner,
		"x-signature":  base58.Encode(req.Signature),
	}
	for _, t := range req.Tags {
		headers["x-tag-"+strings.ToLower(t.Name)] = t.Value
	}

	body, err := c.do(ctx, "upload", http.MethodPost, "/tx/"+Currency, req.Data, headers)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal upload response: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("upload response missing id")
	}
	return resp.ID, nil
}

// SigningPayload is the byte string a wallet signs to authorise an upload.
func SigningPayload(data []byte, tags []Tag) []byte {
	var buf bytes.Buffer
	for _, t := range tags {
		buf.WriteString(t.Name)
		buf.WriteByte(0)
		buf.WriteString(t.Value)
		buf.WriteByte(0)
	}
	buf.Write(data)
	return buf.Bytes()
}

func (c *Client) getJSON(ctx context.Context, op, path string, v interface{}) error {
	body, err := c.do(ctx, op, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bundlr %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// parseLamports accepts a bare number or a quoted decimal string.
func parseLamports(raw []byte) (domain.Lamports, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return domain.Lamports(n), nil
}
