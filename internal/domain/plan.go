package domain

import (
	"fmt"
	"sort"
	"strings"
)

// IntrabarPolicy resolves which trigger wins when a single bar's high/low
// range spans several trigger levels. Only OHLC is known, not the true
// intrabar path, so this is a documented modeling assumption rather than
// ground truth. All four variants must be preserved exactly: changing the
// default resolution order changes backtest results non-trivially.
type IntrabarPolicy string

// Intrabar policy constants.
const (
	IntrabarStopFirst   IntrabarPolicy = "STOP_FIRST"    // stop candidates before profit candidates
	IntrabarTPFirst     IntrabarPolicy = "TP_FIRST"      // profit candidates before stop candidates
	IntrabarHighThenLow IntrabarPolicy = "HIGH_THEN_LOW" // high-anchored rules first, regardless of category
	IntrabarLowThenHigh IntrabarPolicy = "LOW_THEN_HIGH" // low-anchored rules first, regardless of category
)

// Combinator joins several indicator rules on the same bar.
type Combinator string

// Combinator constants.
const (
	CombinatorAny Combinator = "ANY" // at least one rule fires
	CombinatorAll Combinator = "ALL" // every rule fires
)

// IndicatorRuleKind identifies an indicator exit rule type.
type IndicatorRuleKind string

// Indicator rule kinds.
const (
	RuleEMACross    IndicatorRuleKind = "EMA_CROSS"
	RuleRSICross    IndicatorRuleKind = "RSI_CROSS"
	RuleVolumeSpike IndicatorRuleKind = "VOLUME_SPIKE"
)

// RuleDirection selects the side of a cross rule.
type RuleDirection string

// Rule directions. EMA crosses use bullish/bearish; RSI crosses use
// above/below; volume spikes ignore direction.
const (
	DirectionBullish RuleDirection = "BULLISH"
	DirectionBearish RuleDirection = "BEARISH"
	DirectionAbove   RuleDirection = "ABOVE"
	DirectionBelow   RuleDirection = "BELOW"
)

// IndicatorRule is one indicator exit rule.
type IndicatorRule struct {
	Kind      IndicatorRuleKind
	Direction RuleDirection
	Threshold float64 // RSI level or volume z-score threshold; unused for EMA crosses
}

// LadderLevel is one partial take-profit rung.
type LadderLevel struct {
	PriceMultiplier float64 // trigger at entry price * multiplier
	Fraction        float64 // fraction of the original position to close
}

// TrailingStopConfig configures the stop side of a plan.
type TrailingStopConfig struct {
	TrailDistanceBps     float64 // stop trails the high-water mark by this many bps
	ActivationMultiplier float64 // trail arms once the high-water mark reaches entry * this
	HardStopEnabled      bool    // enable an initial stop below entry
	HardStopPct          float64 // hard stop at entry * (1 - pct)
}

// IndicatorExitConfig configures indicator-triggered exits.
type IndicatorExitConfig struct {
	Rules      []IndicatorRule
	Combinator Combinator
}

// TimeExitConfig closes the full position after a fixed number of bars.
type TimeExitConfig struct {
	MaxHoldBars int
}

// ReEntryConfig re-establishes a smaller position after a full exit when
// price retraces toward the prior exit.
type ReEntryConfig struct {
	RetracePct   float64 // trigger at exit price * (1 - pct)
	MaxReEntries int
	SizePercent  float64 // new position size as fraction of the original
}

// Frictions are fee and slippage costs applied to every fill's notional.
type Frictions struct {
	TakerFeeBps float64
	SlippageBps float64
}

// ExitPlan is the immutable configuration governing one simulation run.
// The zero Intrabar value is invalid; callers must pick a policy explicitly.
type ExitPlan struct {
	Ladder        []LadderLevel
	TrailingStop  *TrailingStopConfig
	IndicatorExit *IndicatorExitConfig
	TimeExit      *TimeExitConfig
	Intrabar      IntrabarPolicy
	ReEntry       *ReEntryConfig
	Frictions     Frictions
}

// ladderFractionEpsilon absorbs float rounding when ladder fractions are
// authored to sum to exactly 1.0.
const ladderFractionEpsilon = 1e-9

// Normalize sorts ladder levels ascending by trigger multiplier. Sort order
// is a plan invariant, not caller-guaranteed; run once at load time.
func (p *ExitPlan) Normalize() {
	sort.SliceStable(p.Ladder, func(i, j int) bool {
		return p.Ladder[i].PriceMultiplier < p.Ladder[j].PriceMultiplier
	})
}

// Validate checks plan consistency. All violations wrap ErrInvalidInput.
func (p *ExitPlan) Validate() error {
	switch p.Intrabar {
	case IntrabarStopFirst, IntrabarTPFirst, IntrabarHighThenLow, IntrabarLowThenHigh:
	default:
		return fmt.Errorf("%w: unknown intrabar policy %q", ErrInvalidInput, p.Intrabar)
	}

	fractionSum := 0.0
	for i, level := range p.Ladder {
		if level.PriceMultiplier <= 0 {
			return fmt.Errorf("%w: ladder level %d multiplier must be positive", ErrInvalidInput, i)
		}
		if level.Fraction <= 0 || level.Fraction > 1 {
			return fmt.Errorf("%w: ladder level %d fraction must be in (0,1]", ErrInvalidInput, i)
		}
		fractionSum += level.Fraction
	}
	if fractionSum > 1+ladderFractionEpsilon {
		return fmt.Errorf("%w: ladder fractions sum to %.6f, must be <= 1.0", ErrInvalidInput, fractionSum)
	}

	if ts := p.TrailingStop; ts != nil {
		if ts.TrailDistanceBps <= 0 {
			return fmt.Errorf("%w: trail distance must be positive", ErrInvalidInput)
		}
		if ts.ActivationMultiplier <= 0 {
			return fmt.Errorf("%w: trail activation multiplier must be positive", ErrInvalidInput)
		}
		if ts.HardStopEnabled && (ts.HardStopPct <= 0 || ts.HardStopPct >= 1) {
			return fmt.Errorf("%w: hard stop pct must be in (0,1)", ErrInvalidInput)
		}
	}

	if ie := p.IndicatorExit; ie != nil {
		if len(ie.Rules) == 0 {
			return fmt.Errorf("%w: indicator exit requires at least one rule", ErrInvalidInput)
		}
		if ie.Combinator != CombinatorAny && ie.Combinator != CombinatorAll {
			return fmt.Errorf("%w: unknown combinator %q", ErrInvalidInput, ie.Combinator)
		}
	}

	if te := p.TimeExit; te != nil && te.MaxHoldBars <= 0 {
		return fmt.Errorf("%w: max hold bars must be positive", ErrInvalidInput)
	}

	if re := p.ReEntry; re != nil {
		if re.RetracePct <= 0 || re.RetracePct >= 1 {
			return fmt.Errorf("%w: re-entry retrace pct must be in (0,1)", ErrInvalidInput)
		}
		if re.MaxReEntries < 0 {
			return fmt.Errorf("%w: max re-entries must be non-negative", ErrInvalidInput)
		}
		if re.SizePercent <= 0 || re.SizePercent > 1 {
			return fmt.Errorf("%w: re-entry size percent must be in (0,1]", ErrInvalidInput)
		}
	}

	if p.Frictions.TakerFeeBps < 0 || p.Frictions.SlippageBps < 0 {
		return fmt.Errorf("%w: friction bps must be non-negative", ErrInvalidInput)
	}

	return nil
}

// ID returns the plan identifier including parameters, analogous to a
// strategy fingerprint. Two plans with identical parameters share an ID.
func (p *ExitPlan) ID() string {
	var sb strings.Builder
	sb.WriteString("PLAN")

	for _, level := range p.Ladder {
		fmt.Fprintf(&sb, "_L%.4gx%.4g", level.PriceMultiplier, level.Fraction)
	}
	if ts := p.TrailingStop; ts != nil {
		fmt.Fprintf(&sb, "_TS%.0fbps@%.4gx", ts.TrailDistanceBps, ts.ActivationMultiplier)
		if ts.HardStopEnabled {
			fmt.Fprintf(&sb, "_HS%.4g", ts.HardStopPct)
		}
	}
	if ie := p.IndicatorExit; ie != nil {
		fmt.Fprintf(&sb, "_IE%s", ie.Combinator)
		for _, rule := range ie.Rules {
			fmt.Fprintf(&sb, "-%s.%s.%.4g", rule.Kind, rule.Direction, rule.Threshold)
		}
	}
	if te := p.TimeExit; te != nil {
		fmt.Fprintf(&sb, "_TE%dbars", te.MaxHoldBars)
	}
	if re := p.ReEntry; re != nil {
		fmt.Fprintf(&sb, "_RE%.4gx%dx%.4g", re.RetracePct, re.MaxReEntries, re.SizePercent)
	}
	fmt.Fprintf(&sb, "_%s_F%.4g+%.4g", p.Intrabar, p.Frictions.TakerFeeBps, p.Frictions.SlippageBps)

	return sb.String()
}
