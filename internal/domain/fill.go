package domain

// Fill is a single partial or full execution emitted by the simulator.
// Fractions are expressed relative to the original position size, so the
// fill sequence is self-describing without the plan that produced it.
// Fills are append-only and ordered by timestamp.
type Fill struct {
	TimestampMs int64   // execution timestamp (bar timestamp)
	Price       float64 // execution price before frictions
	Fraction    float64 // fraction of the original position
	Reason      string  // reason code
}

// Fill / exit reason codes.
const (
	FillReasonLadderTarget  = "LADDER_TARGET"
	FillReasonTrailingStop  = "TRAILING_STOP"
	FillReasonHardStop      = "HARD_STOP"
	FillReasonIndicatorExit = "INDICATOR_EXIT"
	FillReasonTimeExit      = "TIME_EXIT"
	FillReasonReEntry       = "RE_ENTRY"

	// ExitReasonSeriesExhausted marks a run that reached the end of the
	// candle series with position remaining. The synthetic mark-to-market
	// fill at the last close carries the same code.
	ExitReasonSeriesExhausted = "SERIES_EXHAUSTED"
)
