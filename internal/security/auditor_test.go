package security

import (
	"testing"

	"solana-risk-engine/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestAudit_NilMetadata(t *testing.T) {
	sig := Audit(nil)
	if !sig.Insufficient {
		t.Fatal("nil metadata must degrade the signal")
	}
	if sig.Score != 0 {
		t.Errorf("degraded signal score = %v, want 0", sig.Score)
	}
}

func TestAudit_CleanToken(t *testing.T) {
	sig := Audit(&domain.TokenMetadata{
		Mint:      "mint1",
		Liquidity: domain.LiquidityBurned,
	})

	if sig.Mintable || sig.Freezable || sig.LiquidityUnlocked {
		t.Errorf("clean token raised flags: mintable=%t freezable=%t unlocked=%t",
			sig.Mintable, sig.Freezable, sig.LiquidityUnlocked)
	}
	if sig.Score != 0 {
		t.Errorf("score = %v, want 0", sig.Score)
	}
}

func TestAudit_AllFlags(t *testing.T) {
	sig := Audit(&domain.TokenMetadata{
		Mint:            "mint1",
		MintAuthority:   strPtr("authority1"),
		FreezeAuthority: strPtr("authority2"),
		Liquidity:       domain.LiquidityUnlocked,
	})

	if !sig.Mintable || !sig.Freezable || !sig.LiquidityUnlocked {
		t.Errorf("expected all flags raised: mintable=%t freezable=%t unlocked=%t",
			sig.Mintable, sig.Freezable, sig.LiquidityUnlocked)
	}
	if sig.Score != 1.0 {
		t.Errorf("score with all flags = %v, want 1.0", sig.Score)
	}
}

func TestAudit_MintableAndUnlocked(t *testing.T) {
	sig := Audit(&domain.TokenMetadata{
		Mint:          "mint1",
		MintAuthority: strPtr("authority1"),
		Liquidity:     domain.LiquidityUnlocked,
	})

	if !sig.Mintable || !sig.LiquidityUnlocked {
		t.Error("mint authority present and unlocked liquidity must both be reported")
	}
	if sig.Freezable {
		t.Error("freezable flag raised without freeze authority")
	}
}

func TestAudit_UnknownLiquidity(t *testing.T) {
	sig := Audit(&domain.TokenMetadata{
		Mint:      "mint1",
		Liquidity: domain.LiquidityUnknown,
	})

	if sig.LiquidityUnlocked {
		t.Error("unknown liquidity must not raise the unlocked flag")
	}
	if !sig.LiquidityUnknown {
		t.Error("unknown liquidity must be surfaced")
	}
	if sig.Insufficient {
		t.Error("unknown liquidity is a valid observation, not a degraded signal")
	}
}
