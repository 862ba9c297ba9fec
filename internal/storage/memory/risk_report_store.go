package memory

import (
	"context"
	"sort"
	"sync"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// RiskReportStore is an in-memory implementation of storage.RiskReportStore.
type RiskReportStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.RiskReport
}

// NewRiskReportStore creates a new in-memory risk report store.
func NewRiskReportStore() *RiskReportStore {
	return &RiskReportStore{
		byID: make(map[string]*domain.RiskReport),
	}
}

// Insert adds a new report. Returns ErrDuplicateKey if report_id exists.
func (s *RiskReportStore) Insert(_ context.Context, r *domain.RiskReport) error {
	if r == nil || r.ReportID == "" || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.ReportID]; exists {
		return storage.ErrDuplicateKey
	}

	reportCopy := *r
	s.byID[r.ReportID] = &reportCopy
	return nil
}

// GetByID retrieves a report by its ID. Returns ErrNotFound if not exists.
func (s *RiskReportStore) GetByID(_ context.Context, reportID string) (*domain.RiskReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.byID[reportID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	reportCopy := *r
	return &reportCopy, nil
}

// GetByMint retrieves all reports for a mint, ordered by generated_at ASC.
func (s *RiskReportStore) GetByMint(_ context.Context, mint string) ([]*domain.RiskReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskReport
	for _, r := range s.byID {
		if r.Mint == mint {
			reportCopy := *r
			result = append(result, &reportCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].GeneratedAtMs != result[j].GeneratedAtMs {
			return result[i].GeneratedAtMs < result[j].GeneratedAtMs
		}
		return result[i].ReportID < result[j].ReportID
	})

	return result, nil
}

// GetLatestByMint retrieves the most recent report for a mint.
func (s *RiskReportStore) GetLatestByMint(ctx context.Context, mint string) (*domain.RiskReport, error) {
	reports, err := s.GetByMint(ctx, mint)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, storage.ErrNotFound
	}
	return reports[len(reports)-1], nil
}

var _ storage.RiskReportStore = (*RiskReportStore)(nil)
