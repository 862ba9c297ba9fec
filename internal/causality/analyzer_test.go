package causality

import (
	"testing"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	return NewAnalyzer(cfg)
}

func priceSeries(prices ...float64) []domain.PriceSample {
	samples := make([]domain.PriceSample, len(prices))
	for i, p := range prices {
		samples[i] = domain.PriceSample{
			Mint:        "mint1",
			TimestampMs: int64(i+1) * 60_000,
			Price:       p,
			Volume:      1000,
		}
	}
	return samples
}

func flowSeries(flows ...float64) []domain.WhaleFlowPoint {
	points := make([]domain.WhaleFlowPoint, len(flows))
	for i, f := range flows {
		points[i] = domain.WhaleFlowPoint{
			Mint:        "mint1",
			TimestampMs: int64(i+1) * 60_000,
			NetFlow:     f,
		}
	}
	return points
}

func TestAnalyze_TooFewSamplesIsIndeterminate(t *testing.T) {
	a := newTestAnalyzer(t)

	sig := a.Analyze(priceSeries(1, 2, 3, 4), flowSeries(1, 1, 1), 1000)
	if sig.Classification != domain.PriceIndeterminate {
		t.Errorf("classification = %s, want INDETERMINATE", sig.Classification)
	}
	if !sig.Insufficient {
		t.Error("short price series must be flagged insufficient, never guessed")
	}
}

func TestAnalyze_NoFlowsIsInsufficient(t *testing.T) {
	a := newTestAnalyzer(t)

	sig := a.Analyze(priceSeries(1, 2, 3, 4, 5, 6), nil, 1000)
	if !sig.Insufficient {
		t.Error("missing flow series must degrade the signal")
	}
}

func TestAnalyze_WhaleDrivenAtLagZero(t *testing.T) {
	a := newTestAnalyzer(t)

	// Price deltas exactly track whale flow in the same interval.
	prices := priceSeries(100, 110, 105, 120, 118, 130, 128)
	flows := flowSeries(50, -25, 75, -10, 60, -10)

	sig := a.Analyze(prices, flows, 10000)
	if sig.Insufficient {
		t.Fatalf("unexpected insufficient: %s", sig.Reason)
	}
	if sig.Classification != domain.PriceWhaleDriven {
		t.Errorf("classification = %s, want WHALE_DRIVEN (corr=%v lag=%d)",
			sig.Classification, sig.Correlation, sig.BestLag)
	}
	if sig.BestLag != 0 {
		t.Errorf("best lag = %d, want 0", sig.BestLag)
	}
	if sig.Correlation < 0.9 {
		t.Errorf("correlation = %v, want near 1 for proportional series", sig.Correlation)
	}
}

func TestAnalyze_FlowLeadingPriceByOne(t *testing.T) {
	a := newTestAnalyzer(t)

	// Flow at interval i drives the price delta at interval i+1.
	flows := flowSeries(50, -25, 75, -10, 60, -10, 5)
	prices := []domain.PriceSample{
		{TimestampMs: 60_000, Price: 100},
		{TimestampMs: 120_000, Price: 100.1}, // noise before flow takes effect
	}
	p := 100.1
	for i := 0; i < len(flows)-1; i++ {
		p += flows[i].NetFlow / 5
		prices = append(prices, domain.PriceSample{
			TimestampMs: int64(i+3) * 60_000,
			Price:       p,
		})
	}

	sig := a.Analyze(prices, flows, 10000)
	if sig.Classification != domain.PriceWhaleDriven {
		t.Errorf("classification = %s, want WHALE_DRIVEN (corr=%v lag=%d)",
			sig.Classification, sig.Correlation, sig.BestLag)
	}
	if sig.BestLag != 1 {
		t.Errorf("best lag = %d, want 1 (flow leads price)", sig.BestLag)
	}
}

func TestAnalyze_UncorrelatedFlowIsOrganic(t *testing.T) {
	a := newTestAnalyzer(t)

	prices := priceSeries(100, 103, 101, 107, 104, 111, 109, 115)
	flows := flowSeries(1, -1, 1, -1, 1, -1, 1)

	sig := a.Analyze(prices, flows, 1_000_000)
	if sig.Insufficient {
		t.Fatalf("unexpected insufficient: %s", sig.Reason)
	}
	if sig.Classification == domain.PriceWhaleDriven {
		t.Errorf("alternating unit flow classified whale-driven (corr=%v lag=%d)",
			sig.Correlation, sig.BestLag)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newTestAnalyzer(t)

	prices := priceSeries(100, 108, 102, 115, 110, 124, 119)
	flows := flowSeries(40, -30, 65, -25, 70, -25)

	first := a.Analyze(prices, flows, 10000)
	for i := 0; i < 20; i++ {
		got := a.Analyze(prices, flows, 10000)
		if got.BestLag != first.BestLag || got.Correlation != first.Correlation ||
			got.Classification != first.Classification {
			t.Fatalf("run %d differs: lag %d corr %v class %s vs lag %d corr %v class %s",
				i, got.BestLag, got.Correlation, got.Classification,
				first.BestLag, first.Correlation, first.Classification)
		}
	}
}

func TestAnalyze_PressureLabels(t *testing.T) {
	a := newTestAnalyzer(t)
	prices := priceSeries(100, 101, 102, 103, 104, 105)

	// Net flow +1% of supply: accumulation.
	sig := a.Analyze(prices, flowSeries(40, 20, 20, 10, 10), 10000)
	if sig.Pressure != domain.PressureAccumulation {
		t.Errorf("pressure = %s, want ACCUMULATION", sig.Pressure)
	}

	// Net flow -1% of supply: distribution.
	sig = a.Analyze(prices, flowSeries(-40, -20, -20, -10, -10), 10000)
	if sig.Pressure != domain.PressureDistribution {
		t.Errorf("pressure = %s, want DISTRIBUTION", sig.Pressure)
	}
}

func TestAnalyze_DivergenceRaisesScore(t *testing.T) {
	a := newTestAnalyzer(t)

	// Price pumping while whales distribute: exit-liquidity pattern.
	prices := priceSeries(100, 105, 110, 116, 122, 130)
	flows := flowSeries(-40, -20, -30, -20, -40)

	sig := a.Analyze(prices, flows, 10000)
	if sig.Attribution != "divergence: whales selling into pump" {
		t.Errorf("attribution = %q", sig.Attribution)
	}

	// Same shape without the divergence scores lower.
	aligned := a.Analyze(prices, flowSeries(40, 20, 30, 20, 40), 10000)
	if sig.Score <= aligned.Score {
		t.Errorf("divergence score %v must exceed aligned score %v", sig.Score, aligned.Score)
	}
}
