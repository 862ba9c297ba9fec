package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// PriceTimeseriesStore is an in-memory implementation of storage.PriceTimeseriesStore.
type PriceTimeseriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceSample // keyed by (mint, timestamp_ms)
}

// NewPriceTimeseriesStore creates a new in-memory price timeseries store.
func NewPriceTimeseriesStore() *PriceTimeseriesStore {
	return &PriceTimeseriesStore{
		data: make(map[string]*domain.PriceSample),
	}
}

func seriesKey(mint string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", mint, timestampMs)
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate (mint, timestamp_ms).
func (s *PriceTimeseriesStore) InsertBulk(_ context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch).
	batchKeys := make(map[string]struct{}, len(samples))
	for _, p := range samples {
		if p == nil || p.Mint == "" {
			return storage.ErrInvalidInput
		}
		key := seriesKey(p.Mint, p.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range samples {
		sampleCopy := *p
		s.data[seriesKey(p.Mint, p.TimestampMs)] = &sampleCopy
	}

	return nil
}

// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
func (s *PriceTimeseriesStore) GetByMint(ctx context.Context, mint string) ([]*domain.PriceSample, error) {
	return s.GetByTimeRange(ctx, mint, 0, int64(^uint64(0)>>1))
}

// GetByTimeRange retrieves samples for a mint within [start, end] (inclusive).
func (s *PriceTimeseriesStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSample
	for _, p := range s.data {
		if p.Mint == mint && p.TimestampMs >= start && p.TimestampMs <= end {
			sampleCopy := *p
			result = append(result, &sampleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.PriceTimeseriesStore = (*PriceTimeseriesStore)(nil)
