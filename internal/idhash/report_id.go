package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeReportID computes a deterministic report_id using SHA256.
// Formula: SHA256(mint|snapshot_captured_at|run_id)
// Returns hex-encoded hash (64 characters).
func ComputeReportID(mint string, snapshotCapturedAtMs int64, runID string) string {
	data := fmt.Sprintf("%s|%d|%s",
		mint,
		snapshotCapturedAtMs,
		runID,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
