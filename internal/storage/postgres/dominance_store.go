package postgres

import (
	"context"
	"fmt"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// DominanceStore implements storage.DominanceStore using PostgreSQL.
type DominanceStore struct {
	pool *Pool
}

// NewDominanceStore creates a new DominanceStore.
func NewDominanceStore(pool *Pool) *DominanceStore {
	return &DominanceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DominanceStore = (*DominanceStore)(nil)

// Append records a new observation for a mint, trimming history to limit.
// Observations must arrive in non-decreasing observed_at order; an
// observation at an already-recorded timestamp replaces it.
func (s *DominanceStore) Append(ctx context.Context, obs *domain.DominanceObservation, limit int) error {
	if obs == nil || obs.Mint == "" || limit < 1 {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin dominance append: %w", err)
	}
	defer tx.Rollback(ctx)

	var latest int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(observed_at), 0) FROM dominance_observations WHERE mint = $1`,
		obs.Mint,
	).Scan(&latest)
	if err != nil {
		return fmt.Errorf("query latest dominance observation: %w", err)
	}
	if obs.ObservedAtMs < latest {
		return storage.ErrInvalidInput
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO dominance_observations (mint, observed_at, top1_share)
		VALUES ($1, $2, $3)
		ON CONFLICT (mint, observed_at) DO UPDATE SET top1_share = EXCLUDED.top1_share
	`, obs.Mint, obs.ObservedAtMs, obs.Top1Share)
	if err != nil {
		return fmt.Errorf("insert dominance observation: %w", err)
	}

	// Trim to the retained window.
	_, err = tx.Exec(ctx, `
		DELETE FROM dominance_observations
		WHERE mint = $1 AND observed_at NOT IN (
			SELECT observed_at FROM dominance_observations
			WHERE mint = $1
			ORDER BY observed_at DESC
			LIMIT $2
		)
	`, obs.Mint, limit)
	if err != nil {
		return fmt.Errorf("trim dominance history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit dominance append: %w", err)
	}
	return nil
}

// GetByMint retrieves retained observations for a mint, ordered by observed_at ASC.
func (s *DominanceStore) GetByMint(ctx context.Context, mint string) ([]*domain.DominanceObservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mint, observed_at, top1_share
		FROM dominance_observations
		WHERE mint = $1
		ORDER BY observed_at ASC
	`, mint)
	if err != nil {
		return nil, fmt.Errorf("query dominance observations: %w", err)
	}
	defer rows.Close()

	var result []*domain.DominanceObservation
	for rows.Next() {
		var obs domain.DominanceObservation
		if err := rows.Scan(&obs.Mint, &obs.ObservedAtMs, &obs.Top1Share); err != nil {
			return nil, fmt.Errorf("scan dominance observation: %w", err)
		}
		result = append(result, &obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dominance observations: %w", err)
	}

	return result, nil
}
