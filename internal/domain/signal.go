package domain

// SignalKind identifies one of the four analyzers.
type SignalKind string

const (
	SignalCluster       SignalKind = "CLUSTER"
	SignalConcentration SignalKind = "CONCENTRATION"
	SignalCausality     SignalKind = "CAUSALITY"
	SignalSecurity      SignalKind = "SECURITY"
)

// AllSignalKinds in canonical aggregation order.
var AllSignalKinds = []SignalKind{
	SignalCluster,
	SignalConcentration,
	SignalCausality,
	SignalSecurity,
}

// SignalResult is the common envelope of every analyzer output.
// Score is a risk fraction in [0,1]. Insufficient marks results that
// could not be computed from the available data; such results carry
// Score 0 but are excluded from aggregation, never treated as zero risk.
// Never mutated after creation.
type SignalResult struct {
	Kind         SignalKind
	Score        float64
	Insufficient bool
	Reason       string // why the signal degraded, empty otherwise
}

// ClusterSignal is the Funding Graph Builder output.
type ClusterSignal struct {
	SignalResult
	Clusters           []Cluster // suspected bundles (size >= 2), canonical order
	LargestClusterSize int
	LargestShare       float64 // tokens held by largest cluster / tokens held by top-N
	CommonFunder       string  // ancestor of the largest cluster, empty if none
	ScannedWallets     int
}

// ConcentrationSignal is the Concentration Analyzer output.
type ConcentrationSignal struct {
	SignalResult
	Gini          float64 // [0,1]
	HHI           float64 // raw, (0,10000]
	HHINormalized float64 // [0,1]
	Top1Share     float64 // fraction of supply
	Top10Share    float64 // fraction of supply
	HolderCount   int     // holders with positive balance
}

// PriceClassification labels what drives recent price action.
type PriceClassification string

const (
	PriceOrganic       PriceClassification = "ORGANIC"
	PriceWhaleDriven   PriceClassification = "WHALE_DRIVEN"
	PriceIndeterminate PriceClassification = "INDETERMINATE"
)

// WhalePressure labels aggregate whale positioning over the window.
type WhalePressure string

const (
	PressureAccumulation WhalePressure = "ACCUMULATION"
	PressureDistribution WhalePressure = "DISTRIBUTION"
	PressureNeutral      WhalePressure = "NEUTRAL"
)

// CausalitySignal is the Causality Engine output.
type CausalitySignal struct {
	SignalResult
	Classification PriceClassification
	Correlation    float64 // strongest cross-correlation, signed
	BestLag        int     // sample periods; >= 0 means flow leads price
	NetFlowShare   float64 // net whale flow as fraction of supply
	Pressure       WhalePressure
	Attribution    string // human-readable trend attribution
}

// SecuritySignal is the Security Auditor output.
type SecuritySignal struct {
	SignalResult
	Mintable          bool // mint authority present and not burned
	Freezable         bool // freeze authority present
	LiquidityUnlocked bool // liquidity neither locked nor burned
	LiquidityUnknown  bool // lock status could not be determined
}
