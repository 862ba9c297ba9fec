// Package causality classifies recent price action as organic or
// whale-driven by cross-correlating whale net-flow against price deltas
// across a bounded set of lag offsets.
package causality

import (
	"fmt"
	"math"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

// Attribution thresholds, mirroring the flow/price divergence verdicts:
// a move smaller than 2% is noise, a flow below 0.1% of supply is neutral.
const (
	priceMoveThresholdPct = 2.0
	flowShareThreshold    = 0.001
)

// minOverlap is the smallest number of (flow, delta) pairs a lag offset
// needs before its correlation is considered.
const minOverlap = 3

// Analyzer correlates whale net-flow with price movement.
type Analyzer struct {
	maxLag          int
	corrThreshold   float64
	minPriceSamples int
	pressureShare   float64
}

// NewAnalyzer creates a causality analyzer from a validated engine config.
func NewAnalyzer(cfg config.Engine) *Analyzer {
	return &Analyzer{
		maxLag:          cfg.MaxLag,
		corrThreshold:   cfg.CorrelationThreshold,
		minPriceSamples: cfg.MinPriceSamples,
		pressureShare:   cfg.WhaleThresholdShare,
	}
}

// Analyze classifies price movement from an ordered price series and the
// aligned whale net-flow series. Identical inputs always select the same
// best lag and classification: lags are scanned in a fixed order
// (0, +1, -1, +2, -2, ...) and only a strictly stronger correlation
// replaces the current best, so ties resolve to the smallest absolute lag
// with flow-leading preferred.
//
// Fewer price samples than the configured minimum yields INDETERMINATE
// flagged insufficient; the engine never guesses.
func (a *Analyzer) Analyze(prices []domain.PriceSample, flows []domain.WhaleFlowPoint, totalSupply float64) domain.CausalitySignal {
	sig := domain.CausalitySignal{
		SignalResult:   domain.SignalResult{Kind: domain.SignalCausality},
		Classification: domain.PriceIndeterminate,
		Pressure:       domain.PressureNeutral,
	}

	if len(prices) < a.minPriceSamples {
		sig.Insufficient = true
		sig.Reason = fmt.Sprintf("price series has %d samples, need %d", len(prices), a.minPriceSamples)
		return sig
	}
	if len(flows) == 0 {
		sig.Insufficient = true
		sig.Reason = "whale flow series unavailable"
		return sig
	}

	deltas := priceDeltas(prices)
	flowVals := make([]float64, len(flows))
	netFlow := 0.0
	for i, f := range flows {
		flowVals[i] = f.NetFlow
		netFlow += f.NetFlow
	}

	if totalSupply > 0 {
		sig.NetFlowShare = netFlow / totalSupply
	}
	sig.Pressure = a.pressure(sig.NetFlowShare)

	bestLag, bestCorr, found := a.bestCorrelation(flowVals, deltas)
	if !found {
		sig.Insufficient = true
		sig.Reason = "insufficient overlap between flow and price series"
		return sig
	}

	sig.BestLag = bestLag
	sig.Correlation = bestCorr

	// Whale-driven requires both a strong correlation and flow leading
	// (or coinciding with) the price move.
	strength := math.Abs(bestCorr)
	if strength >= a.corrThreshold && bestLag >= 0 {
		sig.Classification = domain.PriceWhaleDriven
	} else {
		sig.Classification = domain.PriceOrganic
	}

	priceChangePct := windowChangePct(prices)
	sig.Attribution = attribution(priceChangePct, sig.NetFlowShare)
	sig.Score = a.score(sig.Classification, strength, priceChangePct, sig.NetFlowShare)

	return sig
}

// bestCorrelation scans lags in the order 0, +1, -1, +2, -2, ... and
// returns the lag with the strongest absolute correlation. Positive lag
// means flow leads price by that many sample periods.
func (a *Analyzer) bestCorrelation(flows, deltas []float64) (lag int, corr float64, found bool) {
	bestAbs := -1.0
	for _, k := range lagScanOrder(a.maxLag) {
		c, ok := laggedCorrelation(flows, deltas, k)
		if !ok {
			continue
		}
		if abs := math.Abs(c); abs > bestAbs {
			bestAbs = abs
			lag = k
			corr = c
			found = true
		}
	}
	return lag, corr, found
}

// lagScanOrder returns 0, +1, -1, ..., +maxLag, -maxLag.
func lagScanOrder(maxLag int) []int {
	order := []int{0}
	for k := 1; k <= maxLag; k++ {
		order = append(order, k, -k)
	}
	return order
}

// laggedCorrelation computes the Pearson correlation between flow[i-lag]
// and delta[i] over the valid overlap.
func laggedCorrelation(flows, deltas []float64, lag int) (float64, bool) {
	var xs, ys []float64
	for i := range deltas {
		j := i - lag
		if j < 0 || j >= len(flows) {
			continue
		}
		xs = append(xs, flows[j])
		ys = append(ys, deltas[i])
	}
	if len(xs) < minOverlap {
		return 0, false
	}
	return pearson(xs, ys)
}

// pearson returns the correlation coefficient, reporting false when either
// series has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}

func priceDeltas(prices []domain.PriceSample) []float64 {
	deltas := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		deltas[i-1] = prices[i].Price - prices[i-1].Price
	}
	return deltas
}

// windowChangePct is the percent price change over the whole window.
func windowChangePct(prices []domain.PriceSample) float64 {
	first := prices[0].Price
	last := prices[len(prices)-1].Price
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}

func (a *Analyzer) pressure(netFlowShare float64) domain.WhalePressure {
	switch {
	case netFlowShare > a.pressureShare:
		return domain.PressureAccumulation
	case netFlowShare < -a.pressureShare:
		return domain.PressureDistribution
	default:
		return domain.PressureNeutral
	}
}

// attribution names who moved the price, pairing the direction of the move
// with the direction of whale flow.
func attribution(priceChangePct, netFlowShare float64) string {
	switch {
	case priceChangePct > priceMoveThresholdPct:
		switch {
		case netFlowShare > flowShareThreshold:
			return "whale-driven pump"
		case netFlowShare < -flowShareThreshold:
			return "divergence: whales selling into pump"
		default:
			return "organic retail rally"
		}
	case priceChangePct < -priceMoveThresholdPct:
		switch {
		case netFlowShare < -flowShareThreshold:
			return "whale-driven dump"
		case netFlowShare > flowShareThreshold:
			return "whales absorbing the dip"
		default:
			return "retail panic sell"
		}
	default:
		return "neutral / low volatility"
	}
}

// score maps the classification to a risk fraction. Whale-driven action
// scales with correlation strength above the threshold; organic action
// contributes a small residual. Whales selling into a rising price is the
// classic exit-liquidity pattern and raises the score regardless of
// classification.
func (a *Analyzer) score(class domain.PriceClassification, strength, priceChangePct, netFlowShare float64) float64 {
	var s float64
	if class == domain.PriceWhaleDriven {
		s = 1.0
		if a.corrThreshold < 1 {
			s = 0.5 + 0.5*(strength-a.corrThreshold)/(1-a.corrThreshold)
		}
	} else {
		s = 0.25 * strength / a.corrThreshold
		if s > 0.25 {
			s = 0.25
		}
	}

	if priceChangePct > priceMoveThresholdPct && netFlowShare < -flowShareThreshold {
		s += 0.25
	}

	return clamp01(s)
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
