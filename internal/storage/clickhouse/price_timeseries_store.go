package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/observability"
	"solana-risk-engine/internal/storage"
)

// PriceTimeseriesStore implements storage.PriceTimeseriesStore using ClickHouse.
type PriceTimeseriesStore struct {
	conn *Conn
}

// NewPriceTimeseriesStore creates a new PriceTimeseriesStore.
func NewPriceTimeseriesStore(conn *Conn) *PriceTimeseriesStore {
	return &PriceTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceTimeseriesStore = (*PriceTimeseriesStore)(nil)

// InsertBulk adds multiple samples. Fails entire batch on duplicate (mint, timestamp_ms).
func (s *PriceTimeseriesStore) InsertBulk(ctx context.Context, samples []*domain.PriceSample) (err error) {
	if len(samples) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "price_insert_bulk", time.Since(start).Seconds(), err)
	}()

	// Check for intra-batch duplicates
	type key struct {
		mint        string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range samples {
		k := key{p.Mint, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range samples {
		exists, err := s.exists(ctx, p.Mint, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_timeseries (
			mint, timestamp_ms, price, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range samples {
		err = batch.Append(p.Mint, uint64(p.TimestampMs), p.Price, p.Volume)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
func (s *PriceTimeseriesStore) GetByMint(ctx context.Context, mint string) ([]*domain.PriceSample, error) {
	query := `
		SELECT mint, timestamp_ms, price, volume
		FROM price_timeseries
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// GetByTimeRange retrieves samples for a mint within [start, end] (inclusive).
func (s *PriceTimeseriesStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.PriceSample, error) {
	query := `
		SELECT mint, timestamp_ms, price, volume
		FROM price_timeseries
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// exists checks if a sample with the given key exists.
func (s *PriceTimeseriesStore) exists(ctx context.Context, mint string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM price_timeseries
		WHERE mint = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, mint, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPriceSamples scans multiple rows.
func scanPriceSamples(rows chRows) ([]*domain.PriceSample, error) {
	var samples []*domain.PriceSample

	for rows.Next() {
		var p domain.PriceSample
		var timestampMs uint64

		err := rows.Scan(&p.Mint, &timestampMs, &p.Price, &p.Volume)
		if err != nil {
			return nil, fmt.Errorf("scan price sample row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		samples = append(samples, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sample rows: %w", err)
	}

	return samples, nil
}
