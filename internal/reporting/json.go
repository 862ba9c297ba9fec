package reporting

import (
	"encoding/json"
	"fmt"

	"solana-risk-engine/internal/domain"
)

// RenderJSON renders a risk report as indented JSON.
func RenderJSON(r *domain.RiskReport) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal risk report: %w", err)
	}
	return data, nil
}
