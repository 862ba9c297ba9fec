package ingestion

import (
	"testing"

	"solana-risk-engine/internal/domain"
)

func flowSnapshot() *domain.HolderSnapshot {
	return &domain.HolderSnapshot{
		Mint:        "mint1",
		TotalSupply: 1000,
		Holders: []domain.HolderBalance{
			{Address: "whale1", Balance: 400},
			{Address: "whale2", Balance: 300},
			{Address: "retail1", Balance: 10},
		},
	}
}

func TestBuildWhaleFlows_BucketsInbound(t *testing.T) {
	histories := map[string]*domain.WalletHistory{
		"whale1": {
			Wallet: "whale1",
			Inbound: []domain.Transfer{
				{Source: "dex", Amount: 50, Asset: domain.AssetToken, TimestampMs: 10_000},
				{Source: "dex", Amount: 25, Asset: domain.AssetToken, TimestampMs: 20_000},
				{Source: "dex", Amount: 5, Asset: domain.AssetNative, TimestampMs: 10_000}, // not token flow
			},
		},
		"whale2": {
			Wallet: "whale2",
			Inbound: []domain.Transfer{
				{Source: "dex", Amount: 10, Asset: domain.AssetToken, TimestampMs: 12_000},
			},
		},
	}

	points := BuildWhaleFlows(flowSnapshot(), histories, 2, 60_000)
	if len(points) != 1 {
		t.Fatalf("got %d buckets, want 1", len(points))
	}
	if points[0].NetFlow != 85 {
		t.Errorf("net flow = %v, want 85", points[0].NetFlow)
	}
	if points[0].WalletCount != 2 {
		t.Errorf("wallet count = %d, want 2", points[0].WalletCount)
	}
	if points[0].Mint != "mint1" {
		t.Errorf("mint = %s, want mint1", points[0].Mint)
	}
}

func TestBuildWhaleFlows_InternalMovesNetToZero(t *testing.T) {
	histories := map[string]*domain.WalletHistory{
		"whale1": {
			Wallet: "whale1",
			Inbound: []domain.Transfer{
				// whale2 is also a tracked holder: cohort-internal move.
				{Source: "whale2", Amount: 100, Asset: domain.AssetToken, TimestampMs: 10_000},
			},
		},
	}

	points := BuildWhaleFlows(flowSnapshot(), histories, 2, 60_000)
	if len(points) != 1 {
		t.Fatalf("got %d buckets, want 1", len(points))
	}
	if points[0].NetFlow != 0 {
		t.Errorf("internal move net flow = %v, want 0", points[0].NetFlow)
	}
}

func TestBuildWhaleFlows_OutboundDrivesNetFlowNegative(t *testing.T) {
	histories := map[string]*domain.WalletHistory{
		"whale1": {
			Wallet: "whale1",
			Inbound: []domain.Transfer{
				{Source: "dex", Amount: 100, Asset: domain.AssetToken, TimestampMs: 10_000},
			},
			Outbound: []domain.Transfer{
				{Source: "whale1", Destination: "dex", Amount: 900, Asset: domain.AssetToken, TimestampMs: 20_000},
				{Source: "whale1", Destination: "dex", Amount: 3, Asset: domain.AssetNative, TimestampMs: 20_000}, // not token flow
			},
		},
	}

	points := BuildWhaleFlows(flowSnapshot(), histories, 2, 60_000)
	if len(points) != 1 {
		t.Fatalf("got %d buckets, want 1", len(points))
	}
	if points[0].NetFlow != -800 {
		t.Errorf("net flow = %v, want -800", points[0].NetFlow)
	}
}

func TestBuildWhaleFlows_InternalOutboundNetsToZero(t *testing.T) {
	histories := map[string]*domain.WalletHistory{
		"whale1": {
			Wallet: "whale1",
			Outbound: []domain.Transfer{
				// whale2 is also a tracked holder: cohort-internal move.
				{Source: "whale1", Destination: "whale2", Amount: 100, Asset: domain.AssetToken, TimestampMs: 10_000},
			},
		},
	}

	points := BuildWhaleFlows(flowSnapshot(), histories, 2, 60_000)
	if len(points) != 1 {
		t.Fatalf("got %d buckets, want 1", len(points))
	}
	if points[0].NetFlow != 0 {
		t.Errorf("internal outbound net flow = %v, want 0", points[0].NetFlow)
	}
}

func TestBuildWhaleFlows_IgnoresNonTopWallets(t *testing.T) {
	histories := map[string]*domain.WalletHistory{
		"retail1": {
			Wallet: "retail1",
			Inbound: []domain.Transfer{
				{Source: "dex", Amount: 5, Asset: domain.AssetToken, TimestampMs: 10_000},
			},
		},
	}

	points := BuildWhaleFlows(flowSnapshot(), histories, 2, 60_000)
	if len(points) != 0 {
		t.Errorf("got %d buckets from a non-top wallet, want 0", len(points))
	}
}

func TestBuildWhaleFlows_MultipleBucketsOrdered(t *testing.T) {
	histories := map[string]*domain.WalletHistory{
		"whale1": {
			Wallet: "whale1",
			Inbound: []domain.Transfer{
				{Source: "dex", Amount: 10, Asset: domain.AssetToken, TimestampMs: 150_000},
				{Source: "dex", Amount: 20, Asset: domain.AssetToken, TimestampMs: 30_000},
			},
		},
	}

	points := BuildWhaleFlows(flowSnapshot(), histories, 2, 60_000)
	if len(points) != 2 {
		t.Fatalf("got %d buckets, want 2", len(points))
	}
	if points[0].TimestampMs != 0 || points[1].TimestampMs != 120_000 {
		t.Errorf("bucket starts = %d, %d; want 0 and 120000",
			points[0].TimestampMs, points[1].TimestampMs)
	}
	if points[0].NetFlow != 20 || points[1].NetFlow != 10 {
		t.Errorf("net flows = %v, %v; want 20 and 10", points[0].NetFlow, points[1].NetFlow)
	}
}

func TestBuildWhaleFlows_EmptyInputs(t *testing.T) {
	if points := BuildWhaleFlows(nil, nil, 2, 60_000); points != nil {
		t.Errorf("nil snapshot produced %d points", len(points))
	}
	if points := BuildWhaleFlows(flowSnapshot(), nil, 2, 60_000); points != nil {
		t.Errorf("nil histories produced %d points", len(points))
	}
}
