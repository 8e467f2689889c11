package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/storage"
)

func TestFundingEventStore(t *testing.T) {
	store := NewFundingEventStore()
	ctx := context.Background()

	e1 := &domain.FundingEvent{
		ID: "e1", Owner: "w1", Bundler: "https://devnet.bundlr.network", Kind: domain.ArtifactImage,
		Required: 1000, BalanceBefore: 0, Funded: 200_001_000, BalanceAfter: 200_001_000,
		TxSignature: "sig1", CreatedAt: 2000,
	}
	e2 := &domain.FundingEvent{
		ID: "e2", Owner: "w1", Kind: domain.ArtifactMetadata,
		Funded: 500, TxSignature: "sig2", CreatedAt: 1000,
	}

	require.NoError(t, store.Insert(ctx, e1))
	require.NoError(t, store.Insert(ctx, e2))
	assert.ErrorIs(t, store.Insert(ctx, e1), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, &domain.FundingEvent{ID: "x"}), storage.ErrInvalidInput)

	got, err := store.GetByOwner(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e2", got[0].ID)

	total, err := store.TotalFunded(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.Lamports(200_001_500), total)

	total, err = store.TotalFunded(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, total)
}
