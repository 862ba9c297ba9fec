package ingestion

import (
	"context"

	"solana-risk-engine/internal/domain"
)

// HolderSource provides the holder distribution of a token.
type HolderSource interface {
	// Fetch returns the current holder snapshot for a mint.
	// Holders may be unordered; Adapter enforces canonical ordering.
	Fetch(ctx context.Context, mint string) (*domain.HolderSnapshot, error)
}

// TransferSource provides the transfer history of a wallet.
type TransferSource interface {
	// Fetch returns transfers observed for a wallet in both directions,
	// relative to the analyzed mint. Transfers may be unordered.
	Fetch(ctx context.Context, mint, wallet string) (*domain.WalletHistory, error)
}

// PriceSource provides the recent price series of a token.
type PriceSource interface {
	// Fetch returns price samples for a mint within [from, to] (inclusive).
	Fetch(ctx context.Context, mint string, from, to int64) ([]domain.PriceSample, error)
}

// MetadataSource provides token metadata from external sources.
type MetadataSource interface {
	// Fetch returns token metadata for a given mint address.
	Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}
