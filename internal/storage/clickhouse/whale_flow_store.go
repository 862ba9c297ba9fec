package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/observability"
	"solana-risk-engine/internal/storage"
)

// WhaleFlowStore implements storage.WhaleFlowStore using ClickHouse.
type WhaleFlowStore struct {
	conn *Conn
}

// NewWhaleFlowStore creates a new WhaleFlowStore.
func NewWhaleFlowStore(conn *Conn) *WhaleFlowStore {
	return &WhaleFlowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.WhaleFlowStore = (*WhaleFlowStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (mint, timestamp_ms).
func (s *WhaleFlowStore) InsertBulk(ctx context.Context, points []*domain.WhaleFlowPoint) (err error) {
	if len(points) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "whale_flow_insert_bulk", time.Since(start).Seconds(), err)
	}()

	// Check for intra-batch duplicates
	type key struct {
		mint        string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.Mint, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.Mint, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO whale_flow_timeseries (
			mint, timestamp_ms, net_flow, wallet_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(p.Mint, uint64(p.TimestampMs), p.NetFlow, uint32(p.WalletCount))
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all points for a mint, ordered by timestamp ASC.
func (s *WhaleFlowStore) GetByMint(ctx context.Context, mint string) ([]*domain.WhaleFlowPoint, error) {
	query := `
		SELECT mint, timestamp_ms, net_flow, wallet_count
		FROM whale_flow_timeseries
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanWhaleFlows(rows)
}

// GetByTimeRange retrieves points for a mint within [start, end] (inclusive).
func (s *WhaleFlowStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.WhaleFlowPoint, error) {
	query := `
		SELECT mint, timestamp_ms, net_flow, wallet_count
		FROM whale_flow_timeseries
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanWhaleFlows(rows)
}

// exists checks if a point with the given key exists.
func (s *WhaleFlowStore) exists(ctx context.Context, mint string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM whale_flow_timeseries
		WHERE mint = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, mint, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanWhaleFlows scans multiple rows.
func scanWhaleFlows(rows chRows) ([]*domain.WhaleFlowPoint, error) {
	var points []*domain.WhaleFlowPoint

	for rows.Next() {
		var p domain.WhaleFlowPoint
		var timestampMs uint64
		var walletCount uint32

		err := rows.Scan(&p.Mint, &timestampMs, &p.NetFlow, &walletCount)
		if err != nil {
			return nil, fmt.Errorf("scan whale flow row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.WalletCount = int(walletCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whale flow rows: %w", err)
	}

	return points, nil
}
