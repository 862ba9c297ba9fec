package ingestion

import (
	"errors"
	"sort"

	"solana-risk-engine/internal/domain"
)

// ErrInvalidOrdering is returned when a series is not properly ordered.
var ErrInvalidOrdering = errors.New("series is not in deterministic order")

// SortTransfers orders transfers by (timestamp ASC, tx_signature ASC,
// source ASC). This provides deterministic ordering for histories whose
// upstream pagination order is unstable.
func SortTransfers(transfers []domain.Transfer) {
	sort.Slice(transfers, func(i, j int) bool {
		return compareTransfers(&transfers[i], &transfers[j]) < 0
	})
}

// NormalizePrices sorts samples by timestamp ASC and drops duplicate
// timestamps, keeping the first occurrence. The analyzers require a
// strictly increasing time axis.
func NormalizePrices(samples []domain.PriceSample) []domain.PriceSample {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].TimestampMs < samples[j].TimestampMs
	})

	out := samples[:0]
	var lastTs int64 = -1
	for _, s := range samples {
		if s.TimestampMs == lastTs {
			continue
		}
		out = append(out, s)
		lastTs = s.TimestampMs
	}
	return out
}

// ValidatePriceOrdering checks that samples are strictly increasing in time.
// Returns ErrInvalidOrdering if not.
func ValidatePriceOrdering(samples []domain.PriceSample) error {
	for i := 1; i < len(samples); i++ {
		if samples[i].TimestampMs <= samples[i-1].TimestampMs {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareTransfers returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp ASC, tx_signature ASC, source ASC)
func compareTransfers(a, b *domain.Transfer) int {
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	if a.TxSignature != b.TxSignature {
		if a.TxSignature < b.TxSignature {
			return -1
		}
		return 1
	}
	if a.Source != b.Source {
		if a.Source < b.Source {
			return -1
		}
		return 1
	}
	return 0
}
