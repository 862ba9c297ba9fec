// Package aggregate combines the four analyzer signals into one composite
// score and categorical verdict. The only component with knowledge of all
// analyzers.
package aggregate

import (
	"fmt"
	"strings"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

// Dominance modifier: a fast-accumulating top holder nudges the composite
// up by a bounded amount; thresholds mirror the dominance regime bounds.
const (
	dominanceSlopeThreshold = 0.005 // share fraction per hour
	dominanceModifier       = 0.10
)

// Aggregator folds signal results into a RiskReport skeleton.
type Aggregator struct {
	cfg config.Engine
}

// New creates an aggregator. The config must already be validated;
// invalid weights are a construction-time error upstream, never handled here.
func New(cfg config.Engine) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Combine computes the composite score and verdict from the four signals
// and the optional dominance shift.
//
// A signal flagged insufficient is excluded and its weight redistributed
// proportionally among the remaining signals, so the effective weights
// still sum to 1.0; missing data is never treated as zero risk. When all
// four signals are insufficient the report is marked unanalyzable instead
// of carrying a fabricated score.
func (a *Aggregator) Combine(report *domain.RiskReport) {
	type weighted struct {
		kind   domain.SignalKind
		result domain.SignalResult
	}

	signals := []weighted{
		{domain.SignalCluster, report.Cluster.SignalResult},
		{domain.SignalConcentration, report.Concentration.SignalResult},
		{domain.SignalCausality, report.Causality.SignalResult},
		{domain.SignalSecurity, report.Security.SignalResult},
	}

	availableWeight := 0.0
	for _, s := range signals {
		if s.result.Insufficient {
			report.DegradedKinds = append(report.DegradedKinds, s.kind)
			continue
		}
		availableWeight += a.cfg.Weights.ByKind(s.kind)
	}

	if availableWeight == 0 {
		report.Unanalyzable = true
		report.Verdict = domain.VerdictUnanalyzable
		report.Composite = 0
		report.VerdictSummary = "no signal could be computed from the available data"
		return
	}

	composite := 0.0
	for _, s := range signals {
		if s.result.Insufficient {
			continue
		}
		// Proportional redistribution of the missing weight.
		w := a.cfg.Weights.ByKind(s.kind) / availableWeight
		composite += w * s.result.Score
	}

	if report.Dominance != nil && report.Dominance.Slope > dominanceSlopeThreshold {
		composite += dominanceModifier
	}

	report.Composite = clamp01(composite)
	report.Verdict = a.cfg.VerdictFor(report.Composite)
	report.VerdictSummary = summarize(report)
}

// summarize names the dominant findings in the order a reader cares about:
// bundles first, then supply abuse vectors, then market structure.
func summarize(r *domain.RiskReport) string {
	var parts []string

	if !r.Cluster.Insufficient && r.Cluster.LargestClusterSize >= 2 {
		parts = append(parts, fmt.Sprintf("%d top holders share a funding source (%.0f%% of top-holder supply)",
			r.Cluster.LargestClusterSize, r.Cluster.LargestShare*100))
	}
	if !r.Security.Insufficient {
		if r.Security.Mintable {
			parts = append(parts, "mint authority is live")
		}
		if r.Security.LiquidityUnlocked {
			parts = append(parts, "liquidity is unlocked")
		}
		if r.Security.Freezable {
			parts = append(parts, "freeze authority is live")
		}
	}
	if !r.Concentration.Insufficient && r.Concentration.Gini > 0.5 {
		parts = append(parts, fmt.Sprintf("supply is highly concentrated (gini %.2f)", r.Concentration.Gini))
	}
	if !r.Causality.Insufficient && r.Causality.Classification == domain.PriceWhaleDriven {
		parts = append(parts, "recent price action is whale-driven")
	}
	if r.Dominance != nil && r.Dominance.Slope > dominanceSlopeThreshold {
		parts = append(parts, "top holder is accumulating fast")
	}

	if len(parts) == 0 {
		return "no major anomalies detected"
	}
	return strings.Join(parts, "; ")
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
