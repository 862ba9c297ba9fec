package domain

// DominanceObservation is one recorded top-1 holder share for a mint.
// Corresponds to dominance_observations table in PostgreSQL.
type DominanceObservation struct {
	Mint         string
	ObservedAtMs int64
	Top1Share    float64 // fraction of supply held by the largest wallet
}

// DominanceRegime labels the recent trajectory of the top-1 holder share.
type DominanceRegime string

const (
	RegimeInitial       DominanceRegime = "INITIAL" // fewer than 2 observations
	RegimeConsolidation DominanceRegime = "AGGRESSIVE_CONSOLIDATION"
	RegimeDilution      DominanceRegime = "RAPID_DILUTION"
	RegimeVolatile      DominanceRegime = "VOLATILE_REALLOCATION"
	RegimeStable        DominanceRegime = "STABLE"
)

// DominanceShift summarizes how the top-1 holder share moved across the
// retained observation history.
type DominanceShift struct {
	Mint          string
	PreviousShare float64
	CurrentShare  float64
	Shift         float64 // current - previous
	Slope         float64 // least-squares trend, share fraction per hour
	Volatility    float64 // stddev of retained shares
	Regime        DominanceRegime
	Observations  int
}
