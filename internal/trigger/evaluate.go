// Package trigger evaluates indicator exit rules against indicator samples.
// The evaluator is stateless: cross detection needs two points, so callers
// supply the current and immediately preceding sample. During the indicator
// warm-up period (nil fields, or no preceding sample) cross rules never fire;
// this is a defined false negative, not an error.
package trigger

import (
	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/indicator"
)

// Evaluate returns whether the rule set fires on the current bar.
// CombinatorAll requires every rule to fire on the same bar, CombinatorAny
// at least one. An empty rule set never fires.
func Evaluate(prev, curr *indicator.Sample, rules []domain.IndicatorRule, combinator domain.Combinator) bool {
	if len(rules) == 0 || curr == nil {
		return false
	}

	for _, rule := range rules {
		fired := evaluateRule(prev, curr, rule)

		if combinator == domain.CombinatorAll && !fired {
			return false
		}
		if combinator != domain.CombinatorAll && fired {
			return true
		}
	}

	return combinator == domain.CombinatorAll
}

func evaluateRule(prev, curr *indicator.Sample, rule domain.IndicatorRule) bool {
	switch rule.Kind {
	case domain.RuleEMACross:
		return emaCross(prev, curr, rule.Direction)
	case domain.RuleRSICross:
		return rsiCross(prev, curr, rule.Direction, rule.Threshold)
	case domain.RuleVolumeSpike:
		return volumeSpike(curr, rule.Threshold)
	default:
		return false
	}
}

// emaCross detects a fast/slow EMA cross between the previous and current
// sample. Bullish: fast crosses above slow. Bearish: fast crosses below.
func emaCross(prev, curr *indicator.Sample, direction domain.RuleDirection) bool {
	if prev == nil || prev.EMAFast == nil || prev.EMASlow == nil ||
		curr.EMAFast == nil || curr.EMASlow == nil {
		return false
	}

	switch direction {
	case domain.DirectionBullish:
		return *prev.EMAFast <= *prev.EMASlow && *curr.EMAFast > *curr.EMASlow
	case domain.DirectionBearish:
		return *prev.EMAFast >= *prev.EMASlow && *curr.EMAFast < *curr.EMASlow
	default:
		return false
	}
}

// rsiCross detects RSI crossing a threshold between two samples.
func rsiCross(prev, curr *indicator.Sample, direction domain.RuleDirection, threshold float64) bool {
	if prev == nil || prev.RSI == nil || curr.RSI == nil {
		return false
	}

	switch direction {
	case domain.DirectionAbove:
		return *prev.RSI < threshold && *curr.RSI >= threshold
	case domain.DirectionBelow:
		return *prev.RSI > threshold && *curr.RSI <= threshold
	default:
		return false
	}
}

// volumeSpike fires when the current volume z-score reaches the threshold.
// Level-based, not a cross: only the current sample is consulted.
func volumeSpike(curr *indicator.Sample, threshold float64) bool {
	return curr.VolumeZ != nil && *curr.VolumeZ >= threshold
}
