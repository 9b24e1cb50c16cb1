// Package exitplan implements the exit-plan simulation engine: a single
// forward pass over a token's candle history from an entry point, applying a
// composable exit policy (profit ladders, trailing stops, indicator exits,
// time limits, re-entries) and emitting the resulting fill sequence.
//
// Simulate is a pure function of its inputs. Identical inputs always yield
// byte-identical fill sequences; callers rely on this for caching and
// reproducibility. Nothing is logged or retried inside the engine.
package exitplan

import (
	"fmt"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/indicator"
	"crypto-call-lab/internal/reentry"
	"crypto-call-lab/internal/trigger"
)

// fractionDust absorbs floating-point residue when ladder fractions are
// authored to sum to exactly 1.0: a fill that would leave less than this
// open consumes the whole remainder instead.
const fractionDust = 1e-9

// Input holds all data one simulation run consumes.
type Input struct {
	Candles          []domain.Candle
	EntryTimestampMs int64
	EntryPrice       float64
	Plan             *domain.ExitPlan

	// Indicators is the externally computed series keyed by the candle
	// timestamps. Optional; when absent, indicator rules never fire
	// (same defined false negative as the warm-up period).
	Indicators *indicator.Series
}

// Validate checks preconditions. Violations wrap domain.ErrInvalidInput and
// fail the single call; a zero-fill outcome is not an error.
func (in *Input) Validate() error {
	if len(in.Candles) == 0 {
		return fmt.Errorf("%w: empty candle series", domain.ErrInvalidInput)
	}
	if in.EntryPrice <= 0 {
		return fmt.Errorf("%w: entry price must be positive", domain.ErrInvalidInput)
	}
	if in.Plan == nil {
		return fmt.Errorf("%w: nil exit plan", domain.ErrInvalidInput)
	}
	if err := in.Plan.Validate(); err != nil {
		return err
	}

	// Ordering and dedup are the ingestion layer's responsibility; the
	// engine only asserts non-decreasing timestamps.
	for i := 1; i < len(in.Candles); i++ {
		if in.Candles[i].TimestampMs < in.Candles[i-1].TimestampMs {
			return fmt.Errorf("%w: non-monotonic candle timestamps at index %d", domain.ErrInvalidInput, i)
		}
	}

	return nil
}

// Result is the outcome of one simulation run.
type Result struct {
	Fills           []domain.Fill
	ExitTimestampMs int64
	ExitReason      string
	ReEntryCount    int
}

// Simulate replays the candle series from the entry point under the plan.
//
// Per bar, in fixed order: ratchet the high-water mark and trailing stop,
// collect qualifying exit candidates, resolve them per the intrabar policy,
// apply fills until the position is exhausted. A full ladder/stop/time exit
// arms the re-entry machine when the plan allows; the series being exhausted
// with position remaining emits a synthetic fill at the last close so the
// open position is marked at measurement time.
func Simulate(in *Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// Work on a plan copy with the ladder sorted ascending; the caller's
	// plan is never mutated.
	planCopy := *in.Plan
	planCopy.Ladder = append([]domain.LadderLevel(nil), in.Plan.Ladder...)
	planCopy.Normalize()
	plan := &planCopy

	start := entryBarIndex(in.Candles, in.EntryTimestampMs)
	if start < 0 {
		return nil, fmt.Errorf("%w: no candle at or after entry timestamp %d", domain.ErrInvalidInput, in.EntryTimestampMs)
	}

	var machine *reentry.Machine
	if plan.ReEntry != nil {
		machine = reentry.NewMachine(plan.ReEntry.RetracePct, plan.ReEntry.MaxReEntries)
	}

	res := &Result{}
	pos := newPosition(in.EntryPrice, in.EntryTimestampMs, 1.0, plan)

	for i := start; i < len(in.Candles); i++ {
		bar := in.Candles[i]

		if pos == nil {
			// Flat. Either waiting for a re-entry retrace or finished.
			if machine == nil || !machine.Waiting() {
				break
			}
			entryPrice, triggered := machine.Observe(bar)
			if triggered {
				res.Fills = append(res.Fills, domain.Fill{
					TimestampMs: bar.TimestampMs,
					Price:       entryPrice,
					Fraction:    plan.ReEntry.SizePercent,
					Reason:      domain.FillReasonReEntry,
				})
				// The new leg starts tracking on the next bar; the
				// trigger touch itself is not replayed against the
				// fresh stops.
				pos = newPosition(entryPrice, bar.TimestampMs, plan.ReEntry.SizePercent, plan)
			}
			continue
		}

		pos.updateStops(bar, plan)

		cands := collectCandidates(bar, pos, plan, in.Indicators, prevTimestamp(in.Candles, i))
		orderCandidates(cands, plan.Intrabar)

		for _, c := range cands {
			if pos.remaining <= 0 {
				break
			}

			fraction := c.fraction
			if fraction > pos.remaining || pos.remaining-fraction < fractionDust {
				// Cap at what is open; the last ladder fill also
				// consumes any float dust instead of leaving it.
				fraction = pos.remaining
			}
			if c.kind == kindLadder {
				pos.ladderConsumed[c.ladderIndex] = true
			}

			res.Fills = append(res.Fills, domain.Fill{
				TimestampMs: bar.TimestampMs,
				Price:       c.price,
				Fraction:    fraction,
				Reason:      c.reason,
			})
			pos.remaining -= fraction

			if pos.remaining <= 0 {
				pos.remaining = 0
				res.ExitTimestampMs = bar.TimestampMs
				res.ExitReason = c.reason

				// Only ladder/stop/time exits arm a re-entry;
				// indicator exits are a deliberate signal to stay out.
				if machine != nil && c.reason != domain.FillReasonIndicatorExit {
					machine.Arm(c.price)
				}
				pos = nil
				break
			}
		}

		if pos != nil {
			pos.barsHeld++
		}
	}

	// Candle series exhausted with position remaining: mark the open
	// position at the last close (documented fallback, not an error).
	if pos != nil && pos.remaining > 0 {
		last := in.Candles[len(in.Candles)-1]
		res.Fills = append(res.Fills, domain.Fill{
			TimestampMs: last.TimestampMs,
			Price:       last.Close,
			Fraction:    pos.remaining,
			Reason:      domain.ExitReasonSeriesExhausted,
		})
		res.ExitTimestampMs = last.TimestampMs
		res.ExitReason = domain.ExitReasonSeriesExhausted
	}

	if machine != nil {
		if machine.Waiting() {
			machine.Cancel()
		}
		res.ReEntryCount = machine.Count()
	}

	return res, nil
}

// entryBarIndex returns the index of the first bar at or after the entry
// timestamp, or -1 if the series ends before it.
func entryBarIndex(candles []domain.Candle, entryTimestampMs int64) int {
	for i, c := range candles {
		if c.TimestampMs >= entryTimestampMs {
			return i
		}
	}
	return -1
}

func prevTimestamp(candles []domain.Candle, i int) int64 {
	if i == 0 {
		return 0
	}
	return candles[i-1].TimestampMs
}

// collectCandidates determines which exit conditions qualify on this bar.
// Price-anchored rules (ladder, stop) qualify when their trigger price falls
// within [low, high]; a fill executes at the exact trigger price, with
// frictions applied later by the reducer. Indicator and time exits evaluate
// against the bar close and consume the full remaining position.
func collectCandidates(bar domain.Candle, pos *positionState, plan *domain.ExitPlan, series *indicator.Series, prevTs int64) []candidate {
	var cands []candidate

	for idx, level := range plan.Ladder {
		if pos.ladderConsumed[idx] {
			continue
		}
		triggerPrice := pos.entryPrice * level.PriceMultiplier
		if triggerPrice >= bar.Low && triggerPrice <= bar.High {
			cands = append(cands, candidate{
				kind:        kindLadder,
				anchor:      anchorHigh,
				price:       triggerPrice,
				fraction:    level.Fraction,
				reason:      domain.FillReasonLadderTarget,
				ladderIndex: idx,
			})
		}
	}

	if pos.stopPrice > 0 && pos.stopPrice >= bar.Low && pos.stopPrice <= bar.High {
		cands = append(cands, candidate{
			kind:     kindStop,
			anchor:   anchorLow,
			price:    pos.stopPrice,
			fraction: pos.remaining,
			reason:   pos.stopReason,
		})
	}

	if ie := plan.IndicatorExit; ie != nil && series != nil {
		curr := series.At(bar.TimestampMs)
		var prev *indicator.Sample
		if prevTs != 0 {
			prev = series.At(prevTs)
		}
		if trigger.Evaluate(prev, curr, ie.Rules, ie.Combinator) {
			cands = append(cands, candidate{
				kind:     kindIndicator,
				anchor:   anchorClose,
				price:    bar.Close,
				fraction: pos.remaining,
				reason:   domain.FillReasonIndicatorExit,
			})
		}
	}

	if te := plan.TimeExit; te != nil && pos.barsHeld >= te.MaxHoldBars {
		cands = append(cands, candidate{
			kind:     kindTime,
			anchor:   anchorClose,
			price:    bar.Close,
			fraction: pos.remaining,
			reason:   domain.FillReasonTimeExit,
		})
	}

	return cands
}
