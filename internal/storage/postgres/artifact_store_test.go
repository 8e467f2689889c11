package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/storage"
)

func TestArtifactStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArtifactStore(pool)
	ctx := context.Background()

	img := &domain.Artifact{
		ID:          "a-img",
		SessionID:   "s1",
		Kind:        domain.ArtifactImage,
		TxID:        "img-tx",
		URL:         "https://arweave.net/img-tx?ext=png",
		ContentType: "image/png",
		Size:        2048,
		Cost:        3_000_000_000,
		CreatedAt:   1704067200000,
	}
	meta := &domain.Artifact{
		ID:          "a-meta",
		SessionID:   "s1",
		Kind:        domain.ArtifactMetadata,
		TxID:        "meta-tx",
		URL:         "https://arweave.net/meta-tx",
		ContentType: "application/json",
		Size:        512,
		Cost:        1000,
		CreatedAt:   1704067260000,
	}

	require.NoError(t, store.Insert(ctx, meta))
	require.NoError(t, store.Insert(ctx, img))

	got, err := store.GetByID(ctx, "a-img")
	require.NoError(t, err)
	assert.Equal(t, *img, *got)

	list, err := store.GetBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a-img", list[0].ID)
	assert.Equal(t, "a-meta", list[1].ID)
}

func TestArtifactStore_Errors(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArtifactStore(pool)
	ctx := context.Background()

	a := &domain.Artifact{
		ID: "a1", SessionID: "s1", Kind: domain.ArtifactImage,
		TxID: "t1", URL: "https://arweave.net/t1", CreatedAt: 1,
	}
	require.NoError(t, store.Insert(ctx, a))
	assert.ErrorIs(t, store.Insert(ctx, a), storage.ErrDuplicateKey)

	// same url under a new id
	dupURL := *a
	dupURL.ID = "a2"
	assert.ErrorIs(t, store.Insert(ctx, &dupURL), storage.ErrDuplicateKey)

	assert.ErrorIs(t, store.Insert(ctx, &domain.Artifact{ID: "x"}), storage.ErrInvalidInput)

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
