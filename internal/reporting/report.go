package reporting

import "time"

// Report is the plan leaderboard report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	PlanCount   int

	// Data Summary
	DataSummary DataSummary

	// Leaderboard rows, sorted by net mean return DESC then plan_id ASC.
	Leaderboard []PlanRow
}

// DataSummary describes the data the report was built from.
type DataSummary struct {
	TotalCalls     int
	TelegramCalls  int
	ManualCalls    int
	TotalRuns      int
	DateRangeStart int64 // Unix ms, earliest entry
	DateRangeEnd   int64 // Unix ms, latest entry
}

// PlanRow is one leaderboard row.
type PlanRow struct {
	PlanID               string
	TotalRuns            int
	TotalCalls           int
	WinRate              float64 // run-level
	CallWinRate          float64 // call-level (calls with a winning run / total calls)
	NetMean              float64
	NetMedian            float64
	NetP10               float64
	NetP90               float64
	MaxDrawdown          float64
	MaxConsecutiveLosses int
	NoExitRuns           int
	TotalFeesUSD         float64
}
