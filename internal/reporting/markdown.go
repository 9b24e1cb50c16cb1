package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Exit Plan Leaderboard\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Plans: %d\n\n", r.PlanCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Calls | %d |\n", r.DataSummary.TotalCalls))
	sb.WriteString(fmt.Sprintf("| TELEGRAM Calls | %d |\n", r.DataSummary.TelegramCalls))
	sb.WriteString(fmt.Sprintf("| MANUAL Calls | %d |\n", r.DataSummary.ManualCalls))
	sb.WriteString(fmt.Sprintf("| Total Runs | %d |\n", r.DataSummary.TotalRuns))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.DataSummary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.DataSummary.DateRangeEnd))
	sb.WriteString("\n")

	// Leaderboard
	sb.WriteString("## Leaderboard\n\n")
	if len(r.Leaderboard) > 0 {
		sb.WriteString("| Plan | Runs | Calls | WinRate | CallWinRate | Mean | Median | P10 | P90 | MaxDD | MaxLoss | NoExit | Fees USD |\n")
		sb.WriteString("|------|------|-------|---------|-------------|------|--------|-----|-----|-------|---------|--------|----------|\n")
		for _, row := range r.Leaderboard {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %d | %d | %.2f |\n",
				row.PlanID, row.TotalRuns, row.TotalCalls,
				row.WinRate, row.CallWinRate,
				row.NetMean, row.NetMedian, row.NetP10, row.NetP90,
				row.MaxDrawdown, row.MaxConsecutiveLosses, row.NoExitRuns, row.TotalFeesUSD))
		}
	} else {
		sb.WriteString("No plan aggregates available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
