package domain

// Verdict is the categorical risk label of a completed analysis.
type Verdict string

const (
	VerdictLow          Verdict = "LOW"
	VerdictMedium       Verdict = "MEDIUM"
	VerdictHigh         Verdict = "HIGH"
	VerdictCritical     Verdict = "CRITICAL"
	VerdictUnanalyzable Verdict = "UNANALYZABLE" // all signals degraded
)

// RiskReport is the terminal, immutable output of one analysis run.
// Created fresh per request, never updated in place.
// Corresponds to risk_reports table in PostgreSQL.
type RiskReport struct {
	ReportID      string // deterministic hash, see idhash
	RunID         string // unique per request
	Mint          string
	GeneratedAtMs int64

	Cluster       ClusterSignal
	Concentration ConcentrationSignal
	Causality     CausalitySignal
	Security      SecuritySignal
	Dominance     *DominanceShift // nil when tracking is disabled

	Composite      float64 // weighted risk score in [0,1]; 0 when unanalyzable
	Verdict        Verdict
	Unanalyzable   bool         // all four signals were insufficient
	DegradedKinds  []SignalKind // signals excluded from the composite
	VerdictSummary string       // short description of the dominant findings
}

// Degraded reports whether the given signal was excluded from the composite.
func (r *RiskReport) Degraded(kind SignalKind) bool {
	for _, k := range r.DegradedKinds {
		if k == kind {
			return true
		}
	}
	return false
}
