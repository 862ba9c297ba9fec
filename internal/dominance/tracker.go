// Package dominance tracks the top-1 holder share of each mint across
// analysis runs and labels its recent trajectory. History is persisted
// through a storage.DominanceStore and bounded per mint.
package dominance

import (
	"context"
	"fmt"
	"math"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// Regime thresholds over the retained history. Slope is a least-squares
// trend in share fraction per hour; volatility is the stddev of retained
// shares.
const (
	slopeThreshold      = 0.005
	volatilityThreshold = 0.02
)

// Tracker records top-1 share observations and derives shift metrics.
type Tracker struct {
	store   storage.DominanceStore
	history int
}

// NewTracker creates a tracker retaining at most history observations per mint.
func NewTracker(store storage.DominanceStore, history int) *Tracker {
	return &Tracker{store: store, history: history}
}

// Observe appends the snapshot's top-1 share to the mint's history and
// returns the shift computed over the retained observations. A snapshot
// with zero supply is recorded as share 0.
func (t *Tracker) Observe(ctx context.Context, snapshot *domain.HolderSnapshot) (*domain.DominanceShift, error) {
	if snapshot == nil || snapshot.Mint == "" {
		return nil, fmt.Errorf("dominance: %w: nil or unkeyed snapshot", storage.ErrInvalidInput)
	}

	share := 0.0
	if snapshot.TotalSupply > 0 {
		snapshot.SortHolders()
		if len(snapshot.Holders) > 0 {
			share = snapshot.Holders[0].Balance / snapshot.TotalSupply
		}
	}

	obs := &domain.DominanceObservation{
		Mint:         snapshot.Mint,
		ObservedAtMs: snapshot.CapturedAtMs,
		Top1Share:    share,
	}
	if err := t.store.Append(ctx, obs, t.history); err != nil {
		return nil, fmt.Errorf("dominance: append observation for %s: %w", snapshot.Mint, err)
	}

	history, err := t.store.GetByMint(ctx, snapshot.Mint)
	if err != nil {
		return nil, fmt.Errorf("dominance: load history for %s: %w", snapshot.Mint, err)
	}

	return computeShift(snapshot.Mint, history), nil
}

// computeShift derives shift, slope, volatility and regime from an
// observed_at-ordered history. Fewer than two observations yield the
// INITIAL regime with zero trend metrics.
func computeShift(mint string, history []*domain.DominanceObservation) *domain.DominanceShift {
	shift := &domain.DominanceShift{
		Mint:         mint,
		Regime:       domain.RegimeInitial,
		Observations: len(history),
	}
	if len(history) == 0 {
		return shift
	}

	shift.CurrentShare = history[len(history)-1].Top1Share
	if len(history) < 2 {
		shift.PreviousShare = shift.CurrentShare
		return shift
	}

	shift.PreviousShare = history[len(history)-2].Top1Share
	shift.Shift = shift.CurrentShare - shift.PreviousShare
	shift.Slope = leastSquaresSlope(history)
	shift.Volatility = stddev(history)
	shift.Regime = classify(shift.Slope, shift.Volatility)
	return shift
}

// leastSquaresSlope fits share against elapsed hours since the first
// observation. Zero time spread degenerates to slope 0.
func leastSquaresSlope(history []*domain.DominanceObservation) float64 {
	n := float64(len(history))
	base := history[0].ObservedAtMs

	var sumX, sumY, sumXY, sumXX float64
	for _, obs := range history {
		x := float64(obs.ObservedAtMs-base) / float64(3600*1000)
		y := obs.Top1Share
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func stddev(history []*domain.DominanceObservation) float64 {
	n := float64(len(history))
	mean := 0.0
	for _, obs := range history {
		mean += obs.Top1Share
	}
	mean /= n

	variance := 0.0
	for _, obs := range history {
		d := obs.Top1Share - mean
		variance += d * d
	}
	return math.Sqrt(variance / n)
}

// classify orders regimes by severity: a strong directional trend wins
// over churn, churn wins over stability.
func classify(slope, volatility float64) domain.DominanceRegime {
	switch {
	case slope > slopeThreshold:
		return domain.RegimeConsolidation
	case slope < -slopeThreshold:
		return domain.RegimeDilution
	case volatility > volatilityThreshold:
		return domain.RegimeVolatile
	default:
		return domain.RegimeStable
	}
}
