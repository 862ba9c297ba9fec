package funding

import (
	"sort"
	"time"

	"solana-risk-engine/internal/domain"
)

// postAcquisitionGrace extends the priming window slightly past the first
// acquisition: bundle funders routinely top up gas right after the buy.
const postAcquisitionGrace = time.Hour

// graph is the directed funded-by relation discovered for one analysis run.
// Edges point destination -> sources (reverse orientation) because clustering
// only ever walks toward ancestors.
type graph struct {
	fundedBy map[string][]string
}

// buildGraph derives funding edges from per-wallet histories. A transfer
// source -> holder becomes an edge when it lands inside the holder's priming
// window. Transfers of the analyzed token and of the native asset both count.
func buildGraph(histories map[string]*domain.WalletHistory, priming time.Duration) *graph {
	g := &graph{fundedBy: make(map[string][]string)}

	// Canonical wallet order removes any map-iteration dependence.
	wallets := make([]string, 0, len(histories))
	for w := range histories {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)

	for _, w := range wallets {
		h := histories[w]
		if h == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, t := range h.Inbound {
			if t.Source == "" || t.Source == w {
				continue
			}
			if !inPrimingWindow(t.TimestampMs, h.FirstAcquiredMs, priming) {
				continue
			}
			if seen[t.Source] {
				continue
			}
			seen[t.Source] = true
			g.fundedBy[w] = append(g.fundedBy[w], t.Source)
		}
		sort.Strings(g.fundedBy[w])
	}

	return g
}

// inPrimingWindow reports whether a transfer timestamp falls inside
// [firstAcquired - priming, firstAcquired + grace]. When the first
// acquisition time is unknown the history is already restricted by the
// ingestion layer, so every transfer counts.
func inPrimingWindow(transferMs, firstAcquiredMs int64, priming time.Duration) bool {
	if firstAcquiredMs == 0 {
		return true
	}
	lo := firstAcquiredMs - priming.Milliseconds()
	hi := firstAcquiredMs + postAcquisitionGrace.Milliseconds()
	return transferMs >= lo && transferMs <= hi
}

// ancestors returns the wallet itself plus every funder reachable within
// maxHops steps of the funded-by relation. Transit through non-top-holder
// funder wallets is allowed; results are returned as a set.
func (g *graph) ancestors(wallet string, maxHops int) map[string]bool {
	result := map[string]bool{wallet: true}
	frontier := []string{wallet}

	for hop := 0; hop < maxHops; hop++ {
		var next []string
		for _, w := range frontier {
			for _, src := range g.fundedBy[w] {
				if !result[src] {
					result[src] = true
					next = append(next, src)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	return result
}
