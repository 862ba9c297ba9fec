package domain

import "sort"

// Wallet represents a token holder observed on-chain.
type Wallet struct {
	Address     string  // base58 public key
	Balance     float64 // owned balance of the analyzed token (ui amount)
	FirstSeenMs int64   // first acquisition of the analyzed token (ms), 0 if unknown
}

// HolderBalance is one (wallet, balance) pair inside a snapshot.
type HolderBalance struct {
	Address string
	Balance float64
}

// HolderSnapshot is the holder distribution of a token at analysis time.
// Holders are ordered by balance DESC, address ASC for determinism.
// Balances are non-negative and sum to at most TotalSupply.
type HolderSnapshot struct {
	Mint         string
	CapturedAtMs int64
	TotalSupply  float64
	Holders      []HolderBalance
}

// SortHolders enforces the canonical ordering: balance DESC, address ASC.
func (s *HolderSnapshot) SortHolders() {
	sort.Slice(s.Holders, func(i, j int) bool {
		if s.Holders[i].Balance != s.Holders[j].Balance {
			return s.Holders[i].Balance > s.Holders[j].Balance
		}
		return s.Holders[i].Address < s.Holders[j].Address
	})
}

// TopN returns the first n holders in canonical order.
// Returns all holders if fewer than n exist.
func (s *HolderSnapshot) TopN(n int) []HolderBalance {
	if n > len(s.Holders) {
		n = len(s.Holders)
	}
	return s.Holders[:n]
}

// HeldByTopN returns the total balance held by the first n holders.
func (s *HolderSnapshot) HeldByTopN(n int) float64 {
	total := 0.0
	for _, h := range s.TopN(n) {
		total += h.Balance
	}
	return total
}
