package storage

import (
	"context"

	"solana-risk-engine/internal/domain"
)

// TokenMetadataStore provides access to token_metadata storage.
// Metadata is refreshed per fetch, so inserts upsert by mint.
type TokenMetadataStore interface {
	// Upsert inserts or replaces metadata keyed by mint.
	Upsert(ctx context.Context, m *domain.TokenMetadata) error

	// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}

// RiskReportStore provides access to risk_reports storage.
type RiskReportStore interface {
	// Insert adds a new report. Returns ErrDuplicateKey if report_id exists.
	Insert(ctx context.Context, r *domain.RiskReport) error

	// GetByID retrieves a report by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, reportID string) (*domain.RiskReport, error)

	// GetByMint retrieves all reports for a mint, ordered by generated_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.RiskReport, error)

	// GetLatestByMint retrieves the most recent report for a mint.
	// Returns ErrNotFound if none exists.
	GetLatestByMint(ctx context.Context, mint string) (*domain.RiskReport, error)
}

// DominanceStore provides access to dominance_observations storage.
// History is bounded per mint; Append discards the oldest observation
// once the limit is reached.
type DominanceStore interface {
	// Append records a new observation for a mint, trimming history to limit.
	Append(ctx context.Context, obs *domain.DominanceObservation, limit int) error

	// GetByMint retrieves retained observations for a mint, ordered by observed_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.DominanceObservation, error)
}

// PriceTimeseriesStore provides access to price_timeseries storage.
type PriceTimeseriesStore interface {
	// InsertBulk adds multiple samples. Fails entire batch on duplicate (mint, timestamp_ms).
	InsertBulk(ctx context.Context, samples []*domain.PriceSample) error

	// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.PriceSample, error)

	// GetByTimeRange retrieves samples for a mint within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.PriceSample, error)
}

// WhaleFlowStore provides access to whale_flow_timeseries storage.
type WhaleFlowStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (mint, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.WhaleFlowPoint) error

	// GetByMint retrieves all points for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.WhaleFlowPoint, error)

	// GetByTimeRange retrieves points for a mint within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.WhaleFlowPoint, error)
}
