package exitplan

import (
	"crypto-call-lab/internal/domain"
)

// positionState is the mutable tracking state for one position leg, owned
// exclusively by one simulation run.
type positionState struct {
	remaining        float64 // fraction of the original position still open
	openingFraction  float64 // fraction this leg opened with
	entryPrice       float64
	entryTimestampMs int64
	highWaterMark    float64
	stopPrice        float64 // current effective stop; 0 means no active stop
	stopReason       string  // reason the current stop level would fill with
	trailArmed       bool
	ladderConsumed   []bool // by ladder level index
	barsHeld         int
}

func newPosition(entryPrice float64, entryTimestampMs int64, fraction float64, plan *domain.ExitPlan) *positionState {
	p := &positionState{
		remaining:        fraction,
		openingFraction:  fraction,
		entryPrice:       entryPrice,
		entryTimestampMs: entryTimestampMs,
		highWaterMark:    entryPrice,
		ladderConsumed:   make([]bool, len(plan.Ladder)),
	}

	if ts := plan.TrailingStop; ts != nil && ts.HardStopEnabled {
		p.stopPrice = entryPrice * (1 - ts.HardStopPct)
		p.stopReason = domain.FillReasonHardStop
	}

	return p
}

// updateStops ratchets the high-water mark and the trailing stop using the
// current bar's high. The stop only moves toward protecting more profit,
// never loosens.
func (p *positionState) updateStops(bar domain.Candle, plan *domain.ExitPlan) {
	if bar.High > p.highWaterMark {
		p.highWaterMark = bar.High
	}

	ts := plan.TrailingStop
	if ts == nil {
		return
	}

	if !p.trailArmed && p.highWaterMark >= p.entryPrice*ts.ActivationMultiplier {
		p.trailArmed = true
	}

	if p.trailArmed {
		trail := p.highWaterMark * (1 - ts.TrailDistanceBps/10000)
		if trail > p.stopPrice {
			p.stopPrice = trail
			p.stopReason = domain.FillReasonTrailingStop
		}
	}
}
