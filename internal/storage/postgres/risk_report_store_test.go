package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

func testReport(reportID, mint string, generatedAtMs int64) *domain.RiskReport {
	return &domain.RiskReport{
		ReportID:      reportID,
		RunID:         "run-" + reportID,
		Mint:          mint,
		GeneratedAtMs: generatedAtMs,
		Cluster: domain.ClusterSignal{
			SignalResult: domain.SignalResult{Kind: domain.SignalCluster, Score: 0.4},
			Clusters: []domain.Cluster{
				{Members: []string{"w1", "w2"}, TokensHeld: 300, Funder: "funder1"},
			},
			LargestClusterSize: 2,
			LargestShare:       0.387,
			CommonFunder:       "funder1",
			ScannedWallets:     5,
		},
		Concentration: domain.ConcentrationSignal{
			SignalResult: domain.SignalResult{Kind: domain.SignalConcentration, Score: 0.6},
			Gini:         0.42,
			HHI:          1800,
			Top1Share:    0.4,
			Top10Share:   0.775,
			HolderCount:  5,
		},
		Causality: domain.CausalitySignal{
			SignalResult:   domain.SignalResult{Kind: domain.SignalCausality, Insufficient: true, Reason: "too few samples"},
			Classification: domain.PriceIndeterminate,
		},
		Security: domain.SecuritySignal{
			SignalResult: domain.SignalResult{Kind: domain.SignalSecurity, Score: 0.9},
			Mintable:     true,
		},
		Dominance: &domain.DominanceShift{
			Mint:         mint,
			CurrentShare: 0.4,
			Regime:       domain.RegimeInitial,
			Observations: 1,
		},
		Composite:      0.62,
		Verdict:        domain.VerdictHigh,
		DegradedKinds:  []domain.SignalKind{domain.SignalCausality},
		VerdictSummary: "mintable supply held by a funded cluster",
	}
}

func TestRiskReportStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRiskReportStore(pool)
	ctx := context.Background()

	want := testReport("report1", "mint1", 1000)
	require.NoError(t, store.Insert(ctx, want))

	got, err := store.GetByID(ctx, "report1")
	require.NoError(t, err)
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Mint, got.Mint)
	assert.Equal(t, want.Composite, got.Composite)
	assert.Equal(t, domain.VerdictHigh, got.Verdict)
	assert.Equal(t, want.VerdictSummary, got.VerdictSummary)

	// Structured signal payload survives the JSONB round trip.
	require.Len(t, got.Cluster.Clusters, 1)
	assert.Equal(t, []string{"w1", "w2"}, got.Cluster.Clusters[0].Members)
	assert.Equal(t, "funder1", got.Cluster.CommonFunder)
	assert.Equal(t, 0.42, got.Concentration.Gini)
	assert.True(t, got.Causality.Insufficient)
	assert.Equal(t, "too few samples", got.Causality.Reason)
	assert.True(t, got.Security.Mintable)
	require.NotNil(t, got.Dominance)
	assert.Equal(t, domain.RegimeInitial, got.Dominance.Regime)
	assert.True(t, got.Degraded(domain.SignalCausality))
	assert.False(t, got.Degraded(domain.SignalCluster))
}

func TestRiskReportStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRiskReportStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testReport("report1", "mint1", 1000)))
	err := store.Insert(ctx, testReport("report1", "mint1", 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRiskReportStore_GetByMintOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRiskReportStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testReport("report2", "mint1", 3000)))
	require.NoError(t, store.Insert(ctx, testReport("report1", "mint1", 1000)))
	require.NoError(t, store.Insert(ctx, testReport("report3", "mint2", 2000)))

	reports, err := store.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "report1", reports[0].ReportID)
	assert.Equal(t, "report2", reports[1].ReportID)
}

func TestRiskReportStore_GetLatestByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRiskReportStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testReport("report1", "mint1", 1000)))
	require.NoError(t, store.Insert(ctx, testReport("report2", "mint1", 3000)))

	latest, err := store.GetLatestByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, "report2", latest.ReportID)

	_, err = store.GetLatestByMint(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRiskReportStore_InsertInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRiskReportStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.RiskReport{Mint: "mint1"}), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.RiskReport{ReportID: "r1"}), storage.ErrInvalidInput)
}
