// Package reduce aggregates a simulator fill sequence into trade metrics:
// a fraction-weighted exit price and gross/net return after frictions.
package reduce

import (
	"fmt"

	"crypto-call-lab/internal/domain"
)

// Reduce computes trade metrics from an ordered fill sequence.
//
// Exit-side fills contribute to the VWAP and return; RE_ENTRY fills re-base
// the entry price for the fills that follow them (a re-entry leg's profit is
// measured from its own entry), and contribute friction cost only. Frictions
// are charged once per fill's exit-side notional, not compounded across
// fills. Reduce is idempotent and pure.
//
// An empty fill sequence is a defined degenerate case, not an error: zero
// returns with the NoExit flag set.
func Reduce(fills []domain.Fill, positionNotionalUSD, entryPrice float64, frictions domain.Frictions) (*domain.TradeMetrics, error) {
	if positionNotionalUSD <= 0 {
		return nil, fmt.Errorf("%w: position notional must be positive", domain.ErrInvalidInput)
	}
	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: entry price must be positive", domain.ErrInvalidInput)
	}

	if len(fills) == 0 {
		return &domain.TradeMetrics{NoExit: true}, nil
	}

	frictionRate := (frictions.TakerFeeBps + frictions.SlippageBps) / 10000

	basis := entryPrice
	weightedPrice := 0.0
	totalFraction := 0.0
	weightedReturn := 0.0
	feesUSD := 0.0

	for _, fill := range fills {
		// Notional that changes hands in this fill, valued at the fill
		// price relative to the original entry.
		fillNotional := positionNotionalUSD * fill.Fraction * (fill.Price / entryPrice)
		feesUSD += fillNotional * frictionRate

		if fill.Reason == domain.FillReasonReEntry {
			basis = fill.Price
			continue
		}

		weightedPrice += fill.Price * fill.Fraction
		totalFraction += fill.Fraction
		weightedReturn += fill.Fraction * (fill.Price - basis) / basis
	}

	metrics := &domain.TradeMetrics{FeesUSD: feesUSD}

	if totalFraction == 0 {
		// Only re-entry fills: nothing ever closed.
		metrics.NoExit = true
		return metrics, nil
	}

	metrics.ExitPriceVWAP = weightedPrice / totalFraction
	metrics.GrossReturnPct = weightedReturn / totalFraction * 100
	metrics.NetReturnPct = metrics.GrossReturnPct - (feesUSD/positionNotionalUSD)*100

	return metrics, nil
}

// Classify maps a net return to an outcome class.
func Classify(netReturnPct float64) string {
	if netReturnPct > 0 {
		return domain.OutcomeClassWin
	}
	return domain.OutcomeClassLoss
}
