// Package config holds the externally supplied tuning surface of the risk
// engine. Every value is validated at construction; analysis code assumes a
// valid config and never re-checks ranges.
package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"solana-risk-engine/internal/domain"
)

// ErrInvalidConfig is wrapped by all validation failures.
// Configuration errors are fatal to the engine instance; they are the only
// error class that aborts construction rather than degrading a signal.
var ErrInvalidConfig = errors.New("invalid engine configuration")

// Weights distributes the composite score across the four signals.
// Must sum to 1.0.
type Weights struct {
	Cluster       float64
	Concentration float64
	Causality     float64
	Security      float64
}

// ByKind returns the weight configured for a signal kind.
func (w Weights) ByKind(kind domain.SignalKind) float64 {
	switch kind {
	case domain.SignalCluster:
		return w.Cluster
	case domain.SignalConcentration:
		return w.Concentration
	case domain.SignalCausality:
		return w.Causality
	case domain.SignalSecurity:
		return w.Security
	}
	return 0
}

// VerdictBand maps a composite score interval to a categorical verdict.
// A score s falls into the first band with s <= UpTo (bands sorted ASC).
type VerdictBand struct {
	UpTo    float64
	Verdict domain.Verdict
}

// Engine is the full configuration surface of the analysis engine.
type Engine struct {
	// Funding graph
	TopN          int           // top holders analyzed for bundling
	HopLimit      int           // max funding-path length K
	PrimingWindow time.Duration // transfers this long before first acquisition count as funding

	// Causality
	WhaleThresholdShare  float64 // net-flow share of supply beyond which whale pressure reads accumulation or distribution
	MaxLag               int     // correlation lags tested in [-MaxLag, +MaxLag]
	CorrelationThreshold float64 // |corr| above this may classify whale-driven
	MinPriceSamples      int     // fewer samples => indeterminate

	// Aggregation
	Weights Weights
	Bands   []VerdictBand

	// Ingestion
	FetchConcurrency int           // bounded workers for per-wallet history lookups
	CacheTTL         time.Duration // read-through cache entry lifetime
	RequestTimeout   time.Duration // overall per-request deadline

	// Dominance tracking
	DominanceHistory int // observations retained per mint
}

// Default returns the engine configuration with all documented defaults.
func Default() Engine {
	return Engine{
		TopN:                 10,
		HopLimit:             2,
		PrimingWindow:        48 * time.Hour,
		WhaleThresholdShare:  0.005,
		MaxLag:               3,
		CorrelationThreshold: 0.6,
		MinPriceSamples:      5,
		Weights: Weights{
			Cluster:       0.35,
			Concentration: 0.25,
			Causality:     0.20,
			Security:      0.20,
		},
		Bands: []VerdictBand{
			{UpTo: 0.25, Verdict: domain.VerdictLow},
			{UpTo: 0.50, Verdict: domain.VerdictMedium},
			{UpTo: 0.80, Verdict: domain.VerdictHigh},
			{UpTo: 1.00, Verdict: domain.VerdictCritical},
		},
		FetchConcurrency: 5,
		CacheTTL:         5 * time.Minute,
		RequestTimeout:   30 * time.Second,
		DominanceHistory: 10,
	}
}

// weightSumTolerance absorbs float64 representation error when checking
// that weights sum to exactly 1.0.
const weightSumTolerance = 1e-9

// Validate rejects out-of-range values. Returns an error wrapping
// ErrInvalidConfig describing the first violation found.
func (c Engine) Validate() error {
	if c.TopN < 1 {
		return fmt.Errorf("%w: top-N must be >= 1, got %d", ErrInvalidConfig, c.TopN)
	}
	if c.HopLimit < 1 {
		return fmt.Errorf("%w: hop limit must be >= 1, got %d", ErrInvalidConfig, c.HopLimit)
	}
	if c.PrimingWindow <= 0 {
		return fmt.Errorf("%w: priming window must be positive, got %s", ErrInvalidConfig, c.PrimingWindow)
	}
	if c.WhaleThresholdShare <= 0 || c.WhaleThresholdShare >= 1 {
		return fmt.Errorf("%w: whale threshold share must be in (0,1), got %g", ErrInvalidConfig, c.WhaleThresholdShare)
	}
	if c.MaxLag < 0 {
		return fmt.Errorf("%w: max lag must be >= 0, got %d", ErrInvalidConfig, c.MaxLag)
	}
	if c.CorrelationThreshold <= 0 || c.CorrelationThreshold > 1 {
		return fmt.Errorf("%w: correlation threshold must be in (0,1], got %g", ErrInvalidConfig, c.CorrelationThreshold)
	}
	if c.MinPriceSamples < 2 {
		return fmt.Errorf("%w: min price samples must be >= 2, got %d", ErrInvalidConfig, c.MinPriceSamples)
	}

	if err := c.validateWeights(); err != nil {
		return err
	}
	if err := c.validateBands(); err != nil {
		return err
	}

	if c.FetchConcurrency < 1 {
		return fmt.Errorf("%w: fetch concurrency must be >= 1, got %d", ErrInvalidConfig, c.FetchConcurrency)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("%w: cache TTL must be positive, got %s", ErrInvalidConfig, c.CacheTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive, got %s", ErrInvalidConfig, c.RequestTimeout)
	}
	if c.DominanceHistory < 2 {
		return fmt.Errorf("%w: dominance history must be >= 2, got %d", ErrInvalidConfig, c.DominanceHistory)
	}
	return nil
}

func (c Engine) validateWeights() error {
	for kind, w := range map[domain.SignalKind]float64{
		domain.SignalCluster:       c.Weights.Cluster,
		domain.SignalConcentration: c.Weights.Concentration,
		domain.SignalCausality:     c.Weights.Causality,
		domain.SignalSecurity:      c.Weights.Security,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: weight for %s must be in [0,1], got %g", ErrInvalidConfig, kind, w)
		}
	}

	sum := c.Weights.Cluster + c.Weights.Concentration + c.Weights.Causality + c.Weights.Security
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights must sum to 1.0, got %g", ErrInvalidConfig, sum)
	}
	return nil
}

func (c Engine) validateBands() error {
	if len(c.Bands) == 0 {
		return fmt.Errorf("%w: verdict bands must not be empty", ErrInvalidConfig)
	}

	bands := make([]VerdictBand, len(c.Bands))
	copy(bands, c.Bands)
	sort.Slice(bands, func(i, j int) bool { return bands[i].UpTo < bands[j].UpTo })

	prev := 0.0
	for i, b := range bands {
		if b.UpTo <= prev && i > 0 {
			return fmt.Errorf("%w: verdict band boundaries must be strictly increasing", ErrInvalidConfig)
		}
		if b.UpTo <= 0 || b.UpTo > 1 {
			return fmt.Errorf("%w: verdict band boundary must be in (0,1], got %g", ErrInvalidConfig, b.UpTo)
		}
		if b.Verdict == "" || b.Verdict == domain.VerdictUnanalyzable {
			return fmt.Errorf("%w: verdict band %d carries invalid verdict %q", ErrInvalidConfig, i, b.Verdict)
		}
		prev = b.UpTo
	}
	if bands[len(bands)-1].UpTo != 1.0 {
		return fmt.Errorf("%w: verdict bands must cover scores up to 1.0, top boundary is %g", ErrInvalidConfig, bands[len(bands)-1].UpTo)
	}
	return nil
}

// VerdictFor maps a composite score to its configured band.
// Assumes the config validated; scores are clamped to [0,1] by the aggregator.
func (c Engine) VerdictFor(score float64) domain.Verdict {
	bands := make([]VerdictBand, len(c.Bands))
	copy(bands, c.Bands)
	sort.Slice(bands, func(i, j int) bool { return bands[i].UpTo < bands[j].UpTo })

	for _, b := range bands {
		if score <= b.UpTo {
			return b.Verdict
		}
	}
	return bands[len(bands)-1].Verdict
}
