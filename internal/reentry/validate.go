package reentry

import (
	"crypto-call-lab/internal/domain"
)

// ValidateSequence is a read-only consistency check over a historical window:
// it reports whether a proposed re-entry is reachable without the stop price
// having been breached first. The window is exclusive on both ends — the exit
// bar already closed the position and the re-entry bar is the trigger touch
// itself. Used by callers composing multi-leg replays; never mutates state.
func ValidateSequence(candles []domain.Candle, exitTimestampMs, reEntryTimestampMs int64, stopPrice float64) bool {
	for _, bar := range candles {
		if bar.TimestampMs <= exitTimestampMs {
			continue
		}
		if bar.TimestampMs >= reEntryTimestampMs {
			break
		}
		if bar.Low <= stopPrice {
			return false
		}
	}
	return true
}
