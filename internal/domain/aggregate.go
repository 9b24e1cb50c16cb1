package domain

// PlanAggregate summarizes all simulation runs of one exit plan across calls.
type PlanAggregate struct {
	PlanID string

	// Counts
	TotalRuns   int
	TotalCalls  int
	Wins        int
	Losses      int
	NoExitRuns  int
	WinRate     float64
	CallWinRate float64 // calls with at least one winning run / total calls

	// Net return distribution (percent)
	NetMean   float64
	NetMedian float64
	NetP10    float64
	NetP25    float64
	NetP75    float64
	NetP90    float64
	NetMin    float64
	NetMax    float64
	NetStddev float64

	// Order-dependent, over runs sorted by entry time then run_id
	MaxDrawdown          float64
	MaxConsecutiveLosses int

	// Friction totals
	TotalFeesUSD float64
}
