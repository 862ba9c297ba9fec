package memory

import (
	"context"
	"sync"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// DominanceStore is an in-memory implementation of storage.DominanceStore.
type DominanceStore struct {
	mu     sync.RWMutex
	byMint map[string][]*domain.DominanceObservation // ordered by observed_at ASC
}

// NewDominanceStore creates a new in-memory dominance store.
func NewDominanceStore() *DominanceStore {
	return &DominanceStore{
		byMint: make(map[string][]*domain.DominanceObservation),
	}
}

// Append records a new observation for a mint, trimming history to limit.
// Observations must arrive in non-decreasing observed_at order.
func (s *DominanceStore) Append(_ context.Context, obs *domain.DominanceObservation, limit int) error {
	if obs == nil || obs.Mint == "" || limit < 1 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byMint[obs.Mint]
	if n := len(history); n > 0 && obs.ObservedAtMs < history[n-1].ObservedAtMs {
		return storage.ErrInvalidInput
	}

	obsCopy := *obs
	history = append(history, &obsCopy)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	s.byMint[obs.Mint] = history
	return nil
}

// GetByMint retrieves retained observations for a mint, ordered by observed_at ASC.
func (s *DominanceStore) GetByMint(_ context.Context, mint string) ([]*domain.DominanceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.byMint[mint]
	result := make([]*domain.DominanceObservation, 0, len(history))
	for _, obs := range history {
		obsCopy := *obs
		result = append(result, &obsCopy)
	}
	return result, nil
}

var _ storage.DominanceStore = (*DominanceStore)(nil)
