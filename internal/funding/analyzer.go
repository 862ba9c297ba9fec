// Package funding detects covert coordination among top holders: wallets
// capitalized by a common funding ancestor shortly before they first
// acquired the analyzed token (insider "bundles").
package funding

import (
	"sort"
	"time"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

// Analyzer builds the funding graph over the top holders and clusters
// holders that share a funding ancestor within the hop limit.
type Analyzer struct {
	topN     int
	hopLimit int
	priming  time.Duration
}

// NewAnalyzer creates a funding analyzer from a validated engine config.
func NewAnalyzer(cfg config.Engine) *Analyzer {
	return &Analyzer{
		topN:     cfg.TopN,
		hopLimit: cfg.HopLimit,
		priming:  cfg.PrimingWindow,
	}
}

// Analyze clusters the top-N holders of the snapshot by shared funding
// ancestry. The result is identical across repeated runs on the same edge
// set regardless of input order: holders are processed in canonical
// (sorted) order and cluster members are reported sorted.
//
// A nil histories map means transfer history could not be retrieved and
// degrades the signal to insufficient. Holders without any funding relation
// stay singletons; no detected bundling yields score 0, not an error.
func (a *Analyzer) Analyze(snapshot *domain.HolderSnapshot, histories map[string]*domain.WalletHistory) domain.ClusterSignal {
	sig := domain.ClusterSignal{
		SignalResult: domain.SignalResult{Kind: domain.SignalCluster},
	}

	if histories == nil {
		sig.Insufficient = true
		sig.Reason = "transfer history unavailable for top holders"
		return sig
	}
	if snapshot == nil || len(snapshot.Holders) == 0 {
		sig.Insufficient = true
		sig.Reason = "empty holder snapshot"
		return sig
	}

	top := snapshot.TopN(a.topN)
	sig.ScannedWallets = len(top)

	// Canonicalize: clustering operates on the sorted address list.
	addrs := make([]string, len(top))
	balance := make(map[string]float64, len(top))
	for i, h := range top {
		addrs[i] = h.Address
		balance[h.Address] = h.Balance
	}
	sort.Strings(addrs)

	g := buildGraph(histories, a.priming)

	// Precompute bounded ancestor sets once per holder.
	ancestorSets := make([]map[string]bool, len(addrs))
	for i, w := range addrs {
		ancestorSets[i] = g.ancestors(w, a.hopLimit)
	}

	// Two top holders share a cluster iff their bounded ancestor sets
	// intersect: one funded the other directly (the holder is in the
	// other's set) or both descend from a common funder.
	uf := newUnionFind(len(addrs))
	for i := 0; i < len(addrs); i++ {
		for j := i + 1; j < len(addrs); j++ {
			if setsIntersect(ancestorSets[i], ancestorSets[j]) {
				uf.union(i, j)
			}
		}
	}

	clusters := a.collectClusters(addrs, balance, ancestorSets, uf)
	sig.Clusters = clusters

	heldByTop := snapshot.HeldByTopN(a.topN)
	if len(clusters) > 0 && heldByTop > 0 {
		largest := clusters[0]
		sig.LargestClusterSize = len(largest.Members)
		sig.LargestShare = largest.TokensHeld / heldByTop
		sig.CommonFunder = largest.Funder
		sig.Score = clamp01(sig.LargestShare)
	}

	return sig
}

// collectClusters groups holders by union-find root, dropping singletons.
// Clusters are ordered by tokens held DESC, then first member ASC.
func (a *Analyzer) collectClusters(addrs []string, balance map[string]float64, ancestorSets []map[string]bool, uf *unionFind) []domain.Cluster {
	groups := make(map[int][]int)
	for i := range addrs {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	var clusters []domain.Cluster
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}

		c := domain.Cluster{}
		for _, idx := range members {
			c.Members = append(c.Members, addrs[idx])
			c.TokensHeld += balance[addrs[idx]]
		}
		sort.Strings(c.Members)
		c.Funder = commonFunder(members, addrs, ancestorSets)
		clusters = append(clusters, c)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].TokensHeld != clusters[j].TokensHeld {
			return clusters[i].TokensHeld > clusters[j].TokensHeld
		}
		return clusters[i].Members[0] < clusters[j].Members[0]
	})

	return clusters
}

// commonFunder picks the ancestor shared by the most cluster members,
// excluding the members themselves. Ties resolve lexicographically.
// Empty when members are linked only by funding each other directly.
func commonFunder(members []int, addrs []string, ancestorSets []map[string]bool) string {
	isMember := make(map[string]bool, len(members))
	for _, idx := range members {
		isMember[addrs[idx]] = true
	}

	counts := make(map[string]int)
	for _, idx := range members {
		for anc := range ancestorSets[idx] {
			if !isMember[anc] {
				counts[anc]++
			}
		}
	}

	best := ""
	bestCount := 1 // require at least two members sharing the ancestor
	candidates := make([]string, 0, len(counts))
	for anc := range counts {
		candidates = append(candidates, anc)
	}
	sort.Strings(candidates)
	for _, anc := range candidates {
		if counts[anc] > bestCount {
			best = anc
			bestCount = counts[anc]
		}
	}
	return best
}

func setsIntersect(a, b map[string]bool) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
