package domain

// LiquidityStatus describes the state of the token's trading liquidity.
type LiquidityStatus string

const (
	LiquidityLocked   LiquidityStatus = "LOCKED"
	LiquidityBurned   LiquidityStatus = "BURNED"
	LiquidityUnlocked LiquidityStatus = "UNLOCKED"
	LiquidityUnknown  LiquidityStatus = "UNKNOWN"
)

// TokenMetadata represents mint account state relevant to the security audit.
// Corresponds to token_metadata table in PostgreSQL.
type TokenMetadata struct {
	Mint            string
	Name            *string // nullable
	Symbol          *string // nullable
	Decimals        int
	Supply          float64
	MintAuthority   *string // nil when authority is burned
	FreezeAuthority *string // nil when no freeze authority exists
	Liquidity       LiquidityStatus
	FetchedAtMs     int64
}
