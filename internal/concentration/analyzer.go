// Package concentration computes supply-concentration statistics over the
// full holder distribution: the Gini coefficient and the
// Herfindahl-Hirschman Index.
package concentration

import (
	"sort"

	"solana-risk-engine/internal/domain"
)

// hhiScale converts percent-share HHI (0..10000] to its normalized [0,1] form.
const hhiScale = 10000.0

// Analyze computes the concentration signal from a holder snapshot.
// Degenerate inputs have documented fallbacks: zero total supply yields
// Gini 0 flagged insufficient; a single positive holder yields Gini 1.
// There is no other failure path.
func Analyze(snapshot *domain.HolderSnapshot) domain.ConcentrationSignal {
	sig := domain.ConcentrationSignal{
		SignalResult: domain.SignalResult{Kind: domain.SignalConcentration},
	}

	if snapshot == nil || snapshot.TotalSupply <= 0 {
		sig.Insufficient = true
		sig.Reason = "zero total supply"
		return sig
	}

	// Zero balances carry no supply and are excluded from the distribution.
	balances := make([]float64, 0, len(snapshot.Holders))
	for _, h := range snapshot.Holders {
		if h.Balance > 0 {
			balances = append(balances, h.Balance)
		}
	}
	sig.HolderCount = len(balances)

	if len(balances) == 0 {
		sig.Insufficient = true
		sig.Reason = "no holders with positive balance"
		return sig
	}

	sig.Gini = gini(balances)
	sig.HHI = hhi(balances, snapshot.TotalSupply)
	sig.HHINormalized = sig.HHI / hhiScale

	sig.Top1Share = topShare(snapshot, 1)
	sig.Top10Share = topShare(snapshot, 10)

	// Composite contribution: mean of the two normalized metrics. Gini
	// captures inequality among holders, normalized HHI captures absolute
	// dominance; averaging keeps either one from saturating the score alone.
	sig.Score = clamp01((sig.Gini + sig.HHINormalized) / 2)

	return sig
}

// gini computes the Gini coefficient over positive balances.
// 0 = perfectly equal, 1 = maximal concentration. A single holder is
// maximal concentration by definition.
func gini(balances []float64) float64 {
	n := len(balances)
	if n == 1 {
		return 1
	}

	sorted := make([]float64, n)
	copy(sorted, balances)
	sort.Float64s(sorted)

	var total, weighted float64
	for i, b := range sorted {
		total += b
		weighted += float64(i+1) * b
	}
	if total == 0 {
		return 0
	}

	// Standard formula over rank-weighted sorted balances.
	g := (2*weighted)/(float64(n)*total) - float64(n+1)/float64(n)
	return clamp01(g)
}

// hhi computes the Herfindahl-Hirschman Index with shares expressed in
// percent, so the result lands in (0, 10000].
func hhi(balances []float64, totalSupply float64) float64 {
	sum := 0.0
	for _, b := range balances {
		share := b / totalSupply * 100
		sum += share * share
	}
	if sum > hhiScale {
		sum = hhiScale
	}
	return sum
}

// topShare returns the fraction of total supply held by the first n holders.
// The snapshot's canonical ordering (balance DESC) is assumed.
func topShare(snapshot *domain.HolderSnapshot, n int) float64 {
	return clamp01(snapshot.HeldByTopN(n) / snapshot.TotalSupply)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
