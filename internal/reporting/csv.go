package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders leaderboard rows as CSV string.
func RenderCSV(rows []PlanRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("plan_id,total_runs,total_calls,win_rate,call_win_rate,")
	sb.WriteString("net_mean,net_median,net_p10,net_p90,")
	sb.WriteString("max_drawdown,max_consecutive_losses,no_exit_runs,total_fees_usd\n")

	// Rows
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%d,%.6f\n",
			row.PlanID,
			row.TotalRuns,
			row.TotalCalls,
			row.WinRate,
			row.CallWinRate,
			row.NetMean,
			row.NetMedian,
			row.NetP10,
			row.NetP90,
			row.MaxDrawdown,
			row.MaxConsecutiveLosses,
			row.NoExitRuns,
			row.TotalFeesUSD,
		))
	}

	return sb.String()
}
