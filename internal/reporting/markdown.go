// Package reporting renders risk reports for human and machine consumers.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"solana-risk-engine/internal/domain"
)

// RenderMarkdown renders a risk report as a Markdown string.
func RenderMarkdown(r *domain.RiskReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Token Risk Report\n\n")
	sb.WriteString(fmt.Sprintf("Mint: `%s`\n\n", r.Mint))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n",
		time.UnixMilli(r.GeneratedAtMs).UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Report ID: `%s`\n\n", r.ReportID))

	// Verdict
	sb.WriteString("## Verdict\n\n")
	if r.Unanalyzable {
		sb.WriteString("**UNANALYZABLE** - no signal could be computed from the available data.\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("**%s** (composite %.4f)\n\n", r.Verdict, r.Composite))
	}
	if r.VerdictSummary != "" {
		sb.WriteString(r.VerdictSummary + "\n\n")
	}
	if len(r.DegradedKinds) > 0 {
		sb.WriteString("Degraded signals excluded from the composite:\n\n")
		for _, kind := range r.DegradedKinds {
			sb.WriteString(fmt.Sprintf("- %s\n", kind))
		}
		sb.WriteString("\n")
	}

	// Funding Graph
	sb.WriteString("## Funding Graph\n\n")
	if r.Degraded(domain.SignalCluster) {
		sb.WriteString(degradedLine(r.Cluster.SignalResult))
	} else {
		sb.WriteString(fmt.Sprintf("Score: %.4f | Scanned wallets: %d\n\n",
			r.Cluster.Score, r.Cluster.ScannedWallets))
		if len(r.Cluster.Clusters) > 0 {
			sb.WriteString("| Members | Tokens Held | Funder |\n")
			sb.WriteString("|---------|-------------|--------|\n")
			for _, c := range r.Cluster.Clusters {
				funder := c.Funder
				if funder == "" {
					funder = "-"
				}
				sb.WriteString(fmt.Sprintf("| %s | %.4f | %s |\n",
					strings.Join(c.Members, ", "), c.TokensHeld, funder))
			}
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf("Largest cluster holds %.2f%% of the top-holder supply.\n\n",
				r.Cluster.LargestShare*100))
		} else {
			sb.WriteString("No funding clusters detected among top holders.\n\n")
		}
	}

	// Concentration
	sb.WriteString("## Concentration\n\n")
	if r.Degraded(domain.SignalConcentration) {
		sb.WriteString(degradedLine(r.Concentration.SignalResult))
	} else {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Score | %.4f |\n", r.Concentration.Score))
		sb.WriteString(fmt.Sprintf("| Gini | %.4f |\n", r.Concentration.Gini))
		sb.WriteString(fmt.Sprintf("| HHI | %.2f |\n", r.Concentration.HHI))
		sb.WriteString(fmt.Sprintf("| Top-1 share | %.2f%% |\n", r.Concentration.Top1Share*100))
		sb.WriteString(fmt.Sprintf("| Top-10 share | %.2f%% |\n", r.Concentration.Top10Share*100))
		sb.WriteString(fmt.Sprintf("| Holders | %d |\n", r.Concentration.HolderCount))
		sb.WriteString("\n")
	}

	// Causality
	sb.WriteString("## Price Causality\n\n")
	if r.Degraded(domain.SignalCausality) {
		sb.WriteString(degradedLine(r.Causality.SignalResult))
	} else {
		sb.WriteString(fmt.Sprintf("Classification: **%s** | Pressure: %s\n\n",
			r.Causality.Classification, r.Causality.Pressure))
		sb.WriteString(fmt.Sprintf("Score: %.4f | Correlation: %.4f at lag %d | Net whale flow: %.4f%% of supply\n\n",
			r.Causality.Score, r.Causality.Correlation, r.Causality.BestLag, r.Causality.NetFlowShare*100))
		if r.Causality.Attribution != "" {
			sb.WriteString(r.Causality.Attribution + "\n\n")
		}
	}

	// Security
	sb.WriteString("## Security Audit\n\n")
	if r.Degraded(domain.SignalSecurity) {
		sb.WriteString(degradedLine(r.Security.SignalResult))
	} else {
		sb.WriteString(fmt.Sprintf("Score: %.4f\n\n", r.Security.Score))
		sb.WriteString("| Check | Status |\n")
		sb.WriteString("|-------|--------|\n")
		sb.WriteString(fmt.Sprintf("| Mint authority | %s |\n", flagStatus(r.Security.Mintable, "ACTIVE", "revoked")))
		sb.WriteString(fmt.Sprintf("| Freeze authority | %s |\n", flagStatus(r.Security.Freezable, "ACTIVE", "none")))
		switch {
		case r.Security.LiquidityUnknown:
			sb.WriteString("| Liquidity lock | UNKNOWN |\n")
		case r.Security.LiquidityUnlocked:
			sb.WriteString("| Liquidity lock | UNLOCKED |\n")
		default:
			sb.WriteString("| Liquidity lock | locked or burned |\n")
		}
		sb.WriteString("\n")
	}

	// Dominance
	if r.Dominance != nil {
		sb.WriteString("## Holder Dominance\n\n")
		sb.WriteString(fmt.Sprintf("Regime: **%s** over %d observations\n\n",
			r.Dominance.Regime, r.Dominance.Observations))
		sb.WriteString(fmt.Sprintf("Top-1 share moved %.2f%% -> %.2f%% (slope %.4f/hour, volatility %.4f)\n\n",
			r.Dominance.PreviousShare*100, r.Dominance.CurrentShare*100,
			r.Dominance.Slope, r.Dominance.Volatility))
	}

	return sb.String()
}

func degradedLine(res domain.SignalResult) string {
	reason := res.Reason
	if reason == "" {
		reason = "insufficient data"
	}
	return fmt.Sprintf("Signal degraded: %s\n\n", reason)
}

func flagStatus(flag bool, active, inactive string) string {
	if flag {
		return active
	}
	return inactive
}
