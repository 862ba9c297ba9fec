// Package security evaluates the token's authority and liquidity
// configuration. Pure lookup over metadata; each risk flag is surfaced
// independently and combined only by the aggregator.
package security

import "solana-risk-engine/internal/domain"

// Flag contributions to the signal score. A live mint authority is the
// dominant abuse vector (unlimited supply inflation), unlocked liquidity
// enables a rug pull, a freeze authority can halt selling.
const (
	mintableWeight  = 0.5
	liquidityWeight = 0.3
	freezableWeight = 0.2
)

// Audit derives the security signal from token metadata. A nil metadata
// record degrades the signal; an unknown liquidity status is a valid
// observation and is reported as such without raising the unlocked flag.
func Audit(md *domain.TokenMetadata) domain.SecuritySignal {
	sig := domain.SecuritySignal{
		SignalResult: domain.SignalResult{Kind: domain.SignalSecurity},
	}

	if md == nil {
		sig.Insufficient = true
		sig.Reason = "token metadata unavailable"
		return sig
	}

	sig.Mintable = md.MintAuthority != nil && *md.MintAuthority != ""
	sig.Freezable = md.FreezeAuthority != nil && *md.FreezeAuthority != ""

	switch md.Liquidity {
	case domain.LiquidityUnlocked:
		sig.LiquidityUnlocked = true
	case domain.LiquidityUnknown:
		sig.LiquidityUnknown = true
	}

	if sig.Mintable {
		sig.Score += mintableWeight
	}
	if sig.LiquidityUnlocked {
		sig.Score += liquidityWeight
	}
	if sig.Freezable {
		sig.Score += freezableWeight
	}

	return sig
}
