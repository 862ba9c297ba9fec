package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

func flow(mint string, timestampMs int64, netFlow float64, wallets int) *domain.WhaleFlowPoint {
	return &domain.WhaleFlowPoint{Mint: mint, TimestampMs: timestampMs, NetFlow: netFlow, WalletCount: wallets}
}

func TestWhaleFlowStore_InsertBulkAndGetByMint(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWhaleFlowStore(conn)
	ctx := context.Background()

	points := []*domain.WhaleFlowPoint{
		flow("mint1", 2000, -40.5, 2),
		flow("mint1", 1000, 85.0, 3),
		flow("mint2", 1500, 7.0, 1),
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, 85.0, got[0].NetFlow)
	assert.Equal(t, 3, got[0].WalletCount)
	assert.Equal(t, -40.5, got[1].NetFlow)
}

func TestWhaleFlowStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWhaleFlowStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.WhaleFlowPoint{
		flow("mint1", 1000, 1, 1),
		flow("mint1", 2000, 2, 1),
		flow("mint1", 3000, 3, 1),
	}))

	got, err := store.GetByTimeRange(ctx, "mint1", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[1].TimestampMs)
}

func TestWhaleFlowStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWhaleFlowStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.WhaleFlowPoint{
		flow("mint1", 1000, 1, 1),
		flow("mint1", 1000, 2, 2),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, []*domain.WhaleFlowPoint{
		flow("mint1", 1000, 1, 1),
	}))
	err = store.InsertBulk(ctx, []*domain.WhaleFlowPoint{
		flow("mint1", 1000, 9, 9),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestWhaleFlowStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWhaleFlowStore(conn)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}
