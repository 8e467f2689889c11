package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTransactionFailed is returned when a confirmed transaction carries an error.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrNotConfirmed is returned when polling gives up.
	ErrNotConfirmed = errors.New("transaction not confirmed")
)

// Confirmer waits until a submitted transaction is confirmed.
type Confirmer interface {
	Confirm(ctx context.Context, signature string) error
}

// WSConfirmer confirms through signatureSubscribe.
type WSConfirmer struct {
	ws WSClient
}

// NewWSConfirmer creates a WebSocket-backed confirmer.
func NewWSConfirmer(ws WSClient) *WSConfirmer {
	return &WSConfirmer{ws: ws}
}

// Confirm blocks until the signature notification arrives.
func (c *WSConfirmer) Confirm(ctx context.Context, signature string) error {
	ch, err := c.ws.SignatureSubscribe(ctx, signature)
	if err != nil {
		return fmt.Errorf("subscribe signature: %w", err)
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return ErrConnectionLost
		}
		if res.ConnErr != nil {
			return res.ConnErr
		}
		if res.Err != nil {
			return fmt.Errorf("%w: %v", ErrTransactionFailed, res.Err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PollingConfirmer confirms by polling getSignatureStatuses.
type PollingConfirmer struct {
	rpc         RPCClient
	interval    time.Duration
	maxAttempts int
}

// NewPollingConfirmer creates a polling confirmer. Zero values pick 1s / 60 attempts.
func NewPollingConfirmer(rpc RPCClient, interval time.Duration, maxAttempts int) *PollingConfirmer {
	if interval <= 0 {
		interval = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	return &PollingConfirmer{rpc: rpc, interval: interval, maxAttempts: maxAttempts}
}

// Confirm polls until the status is confirmed, failed, or attempts run out.
func (c *PollingConfirmer) Confirm(ctx context.Context, signature string) error {
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.interval):
			}
		}

		statuses, err := c.rpc.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			return fmt.Errorf("get signature statuses: %w", err)
		}
		if len(statuses) == 0 || statuses[0] == nil {
			continue
		}
		if statuses[0].Err != nil {
			return fmt.Errorf("%w: %v", ErrTransactionFailed, statuses[0].Err)
		}
		if statuses[0].Confirmed() {
			return nil
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrNotConfirmed, c.maxAttempts)
}

// FallbackConfirmer tries primary and falls back to secondary when primary
// fails for a reason other than the transaction itself failing.
type FallbackConfirmer struct {
	primary   Confirmer
	secondary Confirmer
}

// NewFallbackConfirmer chains two confirmers.
func NewFallbackConfirmer(primary, secondary Confirmer) *FallbackConfirmer {
	return &FallbackConfirmer{primary: primary, secondary: secondary}
}

// Confirm implements Confirmer.
func (c *FallbackConfirmer) Confirm(ctx context.Context, signature string) error {
	err := c.primary.Confirm(ctx, signature)
	if err == nil || errors.Is(err, ErrTransactionFailed) || ctx.Err() != nil {
		return err
	}
	return c.secondary.Confirm(ctx, signature)
}
