package memory

import (
	"context"
	"sort"
	"sync"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// WhaleFlowStore is an in-memory implementation of storage.WhaleFlowStore.
type WhaleFlowStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WhaleFlowPoint // keyed by (mint, timestamp_ms)
}

// NewWhaleFlowStore creates a new in-memory whale flow store.
func NewWhaleFlowStore() *WhaleFlowStore {
	return &WhaleFlowStore{
		data: make(map[string]*domain.WhaleFlowPoint),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (mint, timestamp_ms).
func (s *WhaleFlowStore) InsertBulk(_ context.Context, points []*domain.WhaleFlowPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
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

	for _, p := range points {
		pointCopy := *p
		s.data[seriesKey(p.Mint, p.TimestampMs)] = &pointCopy
	}

	return nil
}

// GetByMint retrieves all points for a mint, ordered by timestamp ASC.
func (s *WhaleFlowStore) GetByMint(ctx context.Context, mint string) ([]*domain.WhaleFlowPoint, error) {
	return s.GetByTimeRange(ctx, mint, 0, int64(^uint64(0)>>1))
}

// GetByTimeRange retrieves points for a mint within [start, end] (inclusive).
func (s *WhaleFlowStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]*domain.WhaleFlowPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WhaleFlowPoint
	for _, p := range s.data {
		if p.Mint == mint && p.TimestampMs >= start && p.TimestampMs <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.WhaleFlowStore = (*WhaleFlowStore)(nil)
