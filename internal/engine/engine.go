// Package engine orchestrates one analysis run: it fans the ingested
// observations out to the four analyzers, folds their signals through the
// aggregator and assembles the final risk report.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"solana-risk-engine/internal/aggregate"
	"solana-risk-engine/internal/causality"
	"solana-risk-engine/internal/concentration"
	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/dominance"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/funding"
	"solana-risk-engine/internal/idhash"
	"solana-risk-engine/internal/observability"
	"solana-risk-engine/internal/security"
	"solana-risk-engine/internal/storage"
)

// Input bundles the observations one analysis run consumes. Snapshot is
// required; every other field may be missing and degrades only the signals
// that depend on it.
type Input struct {
	Snapshot  *domain.HolderSnapshot
	Histories map[string]*domain.WalletHistory
	Prices    []domain.PriceSample
	Flows     []domain.WhaleFlowPoint
	Metadata  *domain.TokenMetadata
}

// Engine runs analyses. Safe for concurrent use.
type Engine struct {
	cfg        config.Engine
	funding    *funding.Analyzer
	causality  *causality.Analyzer
	aggregator *aggregate.Aggregator
	tracker    *dominance.Tracker      // nil disables dominance tracking
	reports    storage.RiskReportStore // nil disables persistence
	logger     *log.Logger
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithDominanceTracker enables top-1 share tracking across runs.
func WithDominanceTracker(t *dominance.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithReportStore enables persistence of completed reports.
func WithReportStore(s storage.RiskReportStore) Option {
	return func(e *Engine) { e.reports = s }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine from a validated configuration.
func New(cfg config.Engine, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		funding:    funding.NewAnalyzer(cfg),
		causality:  causality.NewAnalyzer(cfg),
		aggregator: aggregate.New(cfg),
		logger:     log.New(log.Writer(), "[engine] ", log.LstdFlags),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Analyze runs all four analyzers over the input and returns the assembled
// report. Analyzers run concurrently; if the context expires before one
// finishes, its signal is marked insufficient and the report is still
// assembled from whatever completed in time.
func (e *Engine) Analyze(ctx context.Context, input *Input) (*domain.RiskReport, error) {
	if input == nil || input.Snapshot == nil || input.Snapshot.Mint == "" {
		return nil, fmt.Errorf("engine: %w: holder snapshot is required", storage.ErrInvalidInput)
	}

	started := e.now()
	snapshot := input.Snapshot
	snapshot.SortHolders()

	report := &domain.RiskReport{
		RunID:         uuid.New().String(),
		Mint:          snapshot.Mint,
		GeneratedAtMs: started.UnixMilli(),
	}
	report.ReportID = idhash.ComputeReportID(snapshot.Mint, snapshot.CapturedAtMs, report.RunID)

	clusterCh := make(chan domain.ClusterSignal, 1)
	concCh := make(chan domain.ConcentrationSignal, 1)
	causCh := make(chan domain.CausalitySignal, 1)
	secCh := make(chan domain.SecuritySignal, 1)

	go func() { clusterCh <- e.funding.Analyze(snapshot, input.Histories) }()
	go func() { concCh <- concentration.Analyze(snapshot) }()
	go func() { causCh <- e.causality.Analyze(input.Prices, input.Flows, snapshot.TotalSupply) }()
	go func() { secCh <- security.Audit(input.Metadata) }()

	select {
	case report.Cluster = <-clusterCh:
	case <-ctx.Done():
		report.Cluster = domain.ClusterSignal{SignalResult: deadlineResult(domain.SignalCluster)}
	}
	select {
	case report.Concentration = <-concCh:
	case <-ctx.Done():
		report.Concentration = domain.ConcentrationSignal{SignalResult: deadlineResult(domain.SignalConcentration)}
	}
	select {
	case report.Causality = <-causCh:
	case <-ctx.Done():
		report.Causality = domain.CausalitySignal{SignalResult: deadlineResult(domain.SignalCausality)}
	}
	select {
	case report.Security = <-secCh:
	case <-ctx.Done():
		report.Security = domain.SecuritySignal{SignalResult: deadlineResult(domain.SignalSecurity)}
	}

	if e.tracker != nil {
		shift, err := e.tracker.Observe(ctx, snapshot)
		if err != nil {
			e.logger.Printf("dominance tracking failed for %s: %v", snapshot.Mint, err)
		} else {
			report.Dominance = shift
		}
	}

	e.aggregator.Combine(report)

	for _, kind := range report.DegradedKinds {
		observability.RecordDegradation(string(kind))
	}
	observability.RecordAnalysis(string(report.Verdict), e.now().Sub(started).Seconds())

	if e.reports != nil {
		if err := e.reports.Insert(ctx, report); err != nil {
			observability.DefaultMetrics.ReportPersistErrs.Inc()
			e.logger.Printf("persisting report %s failed: %v", report.ReportID, err)
		} else {
			observability.DefaultMetrics.ReportsPersisted.Inc()
		}
	}

	return report, nil
}

func deadlineResult(kind domain.SignalKind) domain.SignalResult {
	return domain.SignalResult{
		Kind:         kind,
		Insufficient: true,
		Reason:       "analysis deadline exceeded",
	}
}
