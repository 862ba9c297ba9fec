package solana

// TokenAmount is a raw token quantity with its decimal scale.
type TokenAmount struct {
	Amount   string // raw integer amount as decimal string
	Decimals int
	UIAmount float64
}

// TokenAccountBalance is one entry from getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address string
	Amount  TokenAmount
}

// MintAccount is the decoded SPL token mint account.
type MintAccount struct {
	Supply          uint64
	Decimals        int
	MintAuthority   *string // nil when revoked
	FreezeAuthority *string // nil when revoked
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}
