package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// TokenMetadataStore implements storage.TokenMetadataStore using PostgreSQL.
type TokenMetadataStore struct {
	pool *Pool
}

// NewTokenMetadataStore creates a new TokenMetadataStore.
func NewTokenMetadataStore(pool *Pool) *TokenMetadataStore {
	return &TokenMetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)

// Upsert inserts or replaces metadata keyed by mint.
func (s *TokenMetadataStore) Upsert(ctx context.Context, m *domain.TokenMetadata) error {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_metadata (
			mint, name, symbol, decimals, supply,
			mint_authority, freeze_authority, liquidity, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (mint) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			decimals = EXCLUDED.decimals,
			supply = EXCLUDED.supply,
			mint_authority = EXCLUDED.mint_authority,
			freeze_authority = EXCLUDED.freeze_authority,
			liquidity = EXCLUDED.liquidity,
			fetched_at = EXCLUDED.fetched_at
	`

	_, err := s.pool.Exec(ctx, query,
		m.Mint,
		m.Name,
		m.Symbol,
		m.Decimals,
		m.Supply,
		m.MintAuthority,
		m.FreezeAuthority,
		string(m.Liquidity),
		m.FetchedAtMs,
	)
	if err != nil {
		return fmt.Errorf("upsert token metadata: %w", err)
	}
	return nil
}

// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
func (s *TokenMetadataStore) GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	query := `
		SELECT mint, name, symbol, decimals, supply,
		       mint_authority, freeze_authority, liquidity, fetched_at
		FROM token_metadata
		WHERE mint = $1
	`

	row := s.pool.QueryRow(ctx, query, mint)
	m, err := scanTokenMetadata(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata by mint: %w", err)
	}
	return m, nil
}

// scanTokenMetadata scans a single row into TokenMetadata.
func scanTokenMetadata(row pgx.Row) (*domain.TokenMetadata, error) {
	var m domain.TokenMetadata
	var liquidity string

	err := row.Scan(
		&m.Mint,
		&m.Name,
		&m.Symbol,
		&m.Decimals,
		&m.Supply,
		&m.MintAuthority,
		&m.FreezeAuthority,
		&liquidity,
		&m.FetchedAtMs,
	)
	if err != nil {
		return nil, err
	}

	m.Liquidity = domain.LiquidityStatus(liquidity)
	return &m, nil
}
