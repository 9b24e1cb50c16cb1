package domain

// TradeMetrics is the reduced outcome of one fill sequence.
type TradeMetrics struct {
	GrossReturnPct float64 // entry to VWAP exit, before frictions
	NetReturnPct   float64 // after taker fee and slippage
	FeesUSD        float64 // total friction cost in USD
	ExitPriceVWAP  float64 // fraction-weighted average exit price
	NoExit         bool    // set when the fill sequence was empty
}

// SimulationRecord is one persisted simulation outcome: a token call replayed
// under one exit plan. Corresponds to the simulation_records table.
type SimulationRecord struct {
	RunID  string // deterministic hash
	CallID string // token call replayed
	PlanID string // exit plan fingerprint

	// Entry
	EntryTimestampMs    int64
	EntryPrice          float64
	PositionNotionalUSD float64

	// Exit
	ExitTimestampMs int64
	ExitReason      string
	FillCount       int
	ReEntryCount    int

	// Outcome
	GrossReturnPct float64
	NetReturnPct   float64
	FeesUSD        float64
	ExitPriceVWAP  float64
	NoExit         bool
	OutcomeClass   string // "WIN" | "LOSS"
}

// Outcome class constants.
const (
	OutcomeClassWin  = "WIN"
	OutcomeClassLoss = "LOSS"
)
