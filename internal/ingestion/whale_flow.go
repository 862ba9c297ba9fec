package ingestion

import (
	"sort"

	"solana-risk-engine/internal/domain"
)

// DefaultFlowBucketMs is the aggregation bucket for whale flow points.
const DefaultFlowBucketMs = 60_000

// BuildWhaleFlows derives a net-flow series for the top holders from their
// transfer histories. Token inbound transfers count as accumulation and
// outbound transfers as distribution, so NetFlow is signed; a move between
// two tracked holders is internal reshuffling and nets to zero for the
// cohort.
func BuildWhaleFlows(snapshot *domain.HolderSnapshot, histories map[string]*domain.WalletHistory, topN int, bucketMs int64) []domain.WhaleFlowPoint {
	if snapshot == nil || len(histories) == 0 {
		return nil
	}
	if bucketMs <= 0 {
		bucketMs = DefaultFlowBucketMs
	}

	snapshot.SortHolders()
	top := make(map[string]bool, topN)
	for _, h := range snapshot.TopN(topN) {
		top[h.Address] = true
	}

	buckets := make(map[int64]float64)
	wallets := make(map[int64]map[string]bool)

	for wallet, history := range histories {
		if history == nil || !top[wallet] {
			continue
		}
		for _, t := range history.Inbound {
			if t.Asset != domain.AssetToken {
				continue
			}
			bucket := (t.TimestampMs / bucketMs) * bucketMs
			if wallets[bucket] == nil {
				wallets[bucket] = make(map[string]bool)
			}
			wallets[bucket][wallet] = true

			if top[t.Source] {
				// Internal move between tracked holders.
				continue
			}
			buckets[bucket] += t.Amount
		}
		for _, t := range history.Outbound {
			if t.Asset != domain.AssetToken {
				continue
			}
			bucket := (t.TimestampMs / bucketMs) * bucketMs
			if wallets[bucket] == nil {
				wallets[bucket] = make(map[string]bool)
			}
			wallets[bucket][wallet] = true

			if top[t.Destination] {
				continue
			}
			buckets[bucket] -= t.Amount
		}
	}

	points := make([]domain.WhaleFlowPoint, 0, len(buckets))
	for bucket := range wallets {
		points = append(points, domain.WhaleFlowPoint{
			Mint:        snapshot.Mint,
			TimestampMs: bucket,
			NetFlow:     buckets[bucket],
			WalletCount: len(wallets[bucket]),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})

	return points
}
