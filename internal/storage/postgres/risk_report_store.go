package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// RiskReportStore implements storage.RiskReportStore using PostgreSQL.
// Scalar report fields map to columns; the structured signal payload is
// stored as a single JSONB document.
type RiskReportStore struct {
	pool *Pool
}

// NewRiskReportStore creates a new RiskReportStore.
func NewRiskReportStore(pool *Pool) *RiskReportStore {
	return &RiskReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RiskReportStore = (*RiskReportStore)(nil)

// reportSignals is the JSONB payload of one report.
type reportSignals struct {
	Cluster       domain.ClusterSignal       `json:"cluster"`
	Concentration domain.ConcentrationSignal `json:"concentration"`
	Causality     domain.CausalitySignal     `json:"causality"`
	Security      domain.SecuritySignal      `json:"security"`
	Dominance     *domain.DominanceShift     `json:"dominance,omitempty"`
	DegradedKinds []domain.SignalKind        `json:"degraded_kinds,omitempty"`
}

// Insert adds a new report. Returns ErrDuplicateKey if report_id exists.
func (s *RiskReportStore) Insert(ctx context.Context, r *domain.RiskReport) error {
	if r == nil || r.ReportID == "" || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	signals, err := json.Marshal(reportSignals{
		Cluster:       r.Cluster,
		Concentration: r.Concentration,
		Causality:     r.Causality,
		Security:      r.Security,
		Dominance:     r.Dominance,
		DegradedKinds: r.DegradedKinds,
	})
	if err != nil {
		return fmt.Errorf("marshal report signals: %w", err)
	}

	query := `
		INSERT INTO risk_reports (
			report_id, run_id, mint, generated_at,
			composite, verdict, unanalyzable, verdict_summary, signals
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ReportID,
		r.RunID,
		r.Mint,
		r.GeneratedAtMs,
		r.Composite,
		string(r.Verdict),
		r.Unanalyzable,
		r.VerdictSummary,
		signals,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert risk report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by its ID. Returns ErrNotFound if not exists.
func (s *RiskReportStore) GetByID(ctx context.Context, reportID string) (*domain.RiskReport, error) {
	query := reportSelect + ` WHERE report_id = $1`

	row := s.pool.QueryRow(ctx, query, reportID)
	r, err := scanRiskReport(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get risk report by id: %w", err)
	}
	return r, nil
}

// GetByMint retrieves all reports for a mint, ordered by generated_at ASC.
func (s *RiskReportStore) GetByMint(ctx context.Context, mint string) ([]*domain.RiskReport, error) {
	query := reportSelect + ` WHERE mint = $1 ORDER BY generated_at ASC, report_id ASC`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query risk reports by mint: %w", err)
	}
	defer rows.Close()

	var reports []*domain.RiskReport
	for rows.Next() {
		r, err := scanRiskReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk report row: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk report rows: %w", err)
	}

	return reports, nil
}

// GetLatestByMint retrieves the most recent report for a mint.
func (s *RiskReportStore) GetLatestByMint(ctx context.Context, mint string) (*domain.RiskReport, error) {
	query := reportSelect + ` WHERE mint = $1 ORDER BY generated_at DESC, report_id DESC LIMIT 1`

	row := s.pool.QueryRow(ctx, query, mint)
	r, err := scanRiskReport(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest risk report: %w", err)
	}
	return r, nil
}

const reportSelect = `
	SELECT report_id, run_id, mint, generated_at,
	       composite, verdict, unanalyzable, verdict_summary, signals
	FROM risk_reports
`

// scanRiskReport scans a single row into RiskReport.
func scanRiskReport(row pgx.Row) (*domain.RiskReport, error) {
	var r domain.RiskReport
	var verdict string
	var signals []byte

	err := row.Scan(
		&r.ReportID,
		&r.RunID,
		&r.Mint,
		&r.GeneratedAtMs,
		&r.Composite,
		&verdict,
		&r.Unanalyzable,
		&r.VerdictSummary,
		&signals,
	)
	if err != nil {
		return nil, err
	}

	var payload reportSignals
	if err := json.Unmarshal(signals, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal report signals: %w", err)
	}

	r.Verdict = domain.Verdict(verdict)
	r.Cluster = payload.Cluster
	r.Concentration = payload.Concentration
	r.Causality = payload.Causality
	r.Security = payload.Security
	r.Dominance = payload.Dominance
	r.DegradedKinds = payload.DegradedKinds
	return &r, nil
}
