package ingestion

import (
	"testing"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/solana"
)

func tokenBalance(mint, owner, amount string) solana.TokenBalance {
	return solana.TokenBalance{
		Mint:  mint,
		Owner: owner,
		Amount: solana.TokenAmount{
			Amount:   amount,
			Decimals: 0,
		},
	}
}

func TestExtractTransfers_InboundTokenDelta(t *testing.T) {
	tx := &solana.Transaction{
		Signature: "sig1",
		BlockTime: 100,
		Message:   &solana.TransactionMessage{AccountKeys: []string{"buyer", "wallet"}},
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "buyer", "600"),
			},
			PostTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "buyer", "100"),
				tokenBalance("mint1", "wallet", "500"),
			},
		},
	}

	raws := extractTransfers(tx, "mint1", "wallet")
	if len(raws) != 1 {
		t.Fatalf("got %d records, want 1", len(raws))
	}
	r := raws[0]
	if r.Source != "buyer" || r.Destination != "wallet" {
		t.Errorf("direction = %s -> %s, want buyer -> wallet", r.Source, r.Destination)
	}
	if r.RawAmount != "500" || r.Asset != domain.AssetToken {
		t.Errorf("amount = %s %s, want 500 TOKEN", r.RawAmount, r.Asset)
	}
	if r.TimestampMs != 100_000 {
		t.Errorf("timestamp = %d, want 100000", r.TimestampMs)
	}
}

// A sell the wallet itself initiated must surface as an outbound record,
// otherwise net flow can never go negative.
func TestExtractTransfers_OutboundTokenDelta(t *testing.T) {
	tx := &solana.Transaction{
		Signature: "sig2",
		BlockTime: 200,
		Message:   &solana.TransactionMessage{AccountKeys: []string{"wallet", "pool"}},
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "wallet", "1000"),
			},
			PostTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "wallet", "100"),
				tokenBalance("mint1", "pool", "900"),
			},
		},
	}

	raws := extractTransfers(tx, "mint1", "wallet")
	if len(raws) != 1 {
		t.Fatalf("got %d records, want 1", len(raws))
	}
	r := raws[0]
	if r.Source != "wallet" || r.Destination != "pool" {
		t.Errorf("direction = %s -> %s, want wallet -> pool", r.Source, r.Destination)
	}
	if r.RawAmount != "900" {
		t.Errorf("amount = %s, want 900", r.RawAmount)
	}
}

// Closing the token account drops its post balance entry entirely; the
// full pre amount is still an outbound transfer.
func TestExtractTransfers_ClosedAccountIsFullOutbound(t *testing.T) {
	tx := &solana.Transaction{
		Signature: "sig3",
		BlockTime: 300,
		Message:   &solana.TransactionMessage{AccountKeys: []string{"wallet", "pool"}},
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "wallet", "750"),
			},
			PostTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "pool", "750"),
			},
		},
	}

	raws := extractTransfers(tx, "mint1", "wallet")
	if len(raws) != 1 {
		t.Fatalf("got %d records, want 1", len(raws))
	}
	if raws[0].Source != "wallet" || raws[0].RawAmount != "750" {
		t.Errorf("got %s from %s, want 750 from wallet", raws[0].RawAmount, raws[0].Source)
	}
}

func TestExtractTransfers_CounterpartyPrefersOppositeDelta(t *testing.T) {
	// Fee payer is a router program account; the real counterparty is the
	// pool whose balance rose by the wallet's loss.
	tx := &solana.Transaction{
		Signature: "sig4",
		BlockTime: 400,
		Message:   &solana.TransactionMessage{AccountKeys: []string{"router", "wallet", "pool"}},
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "wallet", "500"),
				tokenBalance("mint1", "pool", "0"),
			},
			PostTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "wallet", "200"),
				tokenBalance("mint1", "pool", "300"),
			},
		},
	}

	raws := extractTransfers(tx, "mint1", "wallet")
	if len(raws) != 1 {
		t.Fatalf("got %d records, want 1", len(raws))
	}
	if raws[0].Destination != "pool" {
		t.Errorf("counterparty = %s, want pool", raws[0].Destination)
	}
}

func TestExtractTransfers_NativeCredit(t *testing.T) {
	tx := &solana.Transaction{
		Signature: "sig5",
		BlockTime: 500,
		Message:   &solana.TransactionMessage{AccountKeys: []string{"funder", "wallet"}},
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{5_000_000_000, 0},
			PostBalances: []uint64{3_000_000_000, 2_000_000_000},
		},
	}

	raws := extractTransfers(tx, "mint1", "wallet")
	if len(raws) != 1 {
		t.Fatalf("got %d records, want 1", len(raws))
	}
	r := raws[0]
	if r.Asset != domain.AssetNative || r.RawAmount != "2000000000" {
		t.Errorf("got %s %s, want 2000000000 NATIVE", r.RawAmount, r.Asset)
	}
	if r.Source != "funder" {
		t.Errorf("source = %s, want funder", r.Source)
	}
}

func TestExtractTransfers_SelfInitiatedNoChange(t *testing.T) {
	// Wallet pays fees on its own transaction, token balance untouched:
	// neither the fee debit nor a zero token delta produce a record.
	tx := &solana.Transaction{
		Signature: "sig6",
		BlockTime: 600,
		Message:   &solana.TransactionMessage{AccountKeys: []string{"wallet", "other"}},
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{1_000_000_000, 0},
			PostBalances: []uint64{999_995_000, 0},
			PreTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "wallet", "100"),
			},
			PostTokenBalances: []solana.TokenBalance{
				tokenBalance("mint1", "wallet", "100"),
			},
		},
	}

	if raws := extractTransfers(tx, "mint1", "wallet"); len(raws) != 0 {
		t.Errorf("got %d records from a no-op transaction, want 0", len(raws))
	}
}
