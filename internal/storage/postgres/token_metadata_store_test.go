package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

func TestTokenMetadataStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenMetadataStore(pool)
	ctx := context.Background()

	meta := &domain.TokenMetadata{
		Mint:            "mint1",
		Name:            ptr("Test Token"),
		Symbol:          ptr("TST"),
		Decimals:        9,
		Supply:          1_000_000,
		MintAuthority:   ptr("authority1"),
		FreezeAuthority: nil,
		Liquidity:       domain.LiquidityLocked,
		FetchedAtMs:     1700000000000,
	}

	require.NoError(t, store.Upsert(ctx, meta))

	got, err := store.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, meta.Mint, got.Mint)
	assert.Equal(t, *meta.Name, *got.Name)
	assert.Equal(t, meta.Decimals, got.Decimals)
	assert.Equal(t, meta.Supply, got.Supply)
	assert.Equal(t, *meta.MintAuthority, *got.MintAuthority)
	assert.Nil(t, got.FreezeAuthority)
	assert.Equal(t, domain.LiquidityLocked, got.Liquidity)
	assert.Equal(t, meta.FetchedAtMs, got.FetchedAtMs)
}

func TestTokenMetadataStore_UpsertReplaces(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenMetadataStore(pool)
	ctx := context.Background()

	first := &domain.TokenMetadata{
		Mint:          "mint1",
		Decimals:      6,
		Supply:        500,
		MintAuthority: ptr("authority1"),
		Liquidity:     domain.LiquidityUnknown,
		FetchedAtMs:   1000,
	}
	require.NoError(t, store.Upsert(ctx, first))

	// Authority revoked, liquidity resolved on refresh.
	second := &domain.TokenMetadata{
		Mint:        "mint1",
		Decimals:    6,
		Supply:      500,
		Liquidity:   domain.LiquidityBurned,
		FetchedAtMs: 2000,
	}
	require.NoError(t, store.Upsert(ctx, second))

	got, err := store.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Nil(t, got.MintAuthority)
	assert.Equal(t, domain.LiquidityBurned, got.Liquidity)
	assert.Equal(t, int64(2000), got.FetchedAtMs)
}

func TestTokenMetadataStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenMetadataStore(pool)

	_, err := store.GetByMint(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenMetadataStore_UpsertInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenMetadataStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &domain.TokenMetadata{}), storage.ErrInvalidInput)
}
