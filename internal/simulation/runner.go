package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/exitplan"
	"crypto-call-lab/internal/idhash"
	"crypto-call-lab/internal/indicator"
	"crypto-call-lab/internal/observability"
	"crypto-call-lab/internal/reduce"
	"crypto-call-lab/internal/storage"
)

// Runner errors
var (
	ErrNoCandles = errors.New("no candles for call mint")
)

// Runner executes exit-plan simulations for token calls.
type Runner struct {
	callStore       storage.CallStore
	candleStore     storage.CandleStore
	simulationStore storage.SimulationStore
	indicatorCfg    indicator.Config
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	CallStore       storage.CallStore
	CandleStore     storage.CandleStore
	SimulationStore storage.SimulationStore

	// IndicatorConfig defaults to indicator.DefaultConfig() when zero.
	IndicatorConfig indicator.Config
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	cfg := opts.IndicatorConfig
	if cfg == (indicator.Config{}) {
		cfg = indicator.DefaultConfig()
	}
	return &Runner{
		callStore:       opts.CallStore,
		candleStore:     opts.CandleStore,
		simulationStore: opts.SimulationStore,
		indicatorCfg:    cfg,
	}
}

// Run executes one exit plan against one call.
// Steps:
//  1. Load call by ID
//  2. Validate plan
//  3. Load candle history for the call's mint
//  4. Compute indicator series
//  5. Simulate the exit plan from the call's entry
//  6. Reduce fills to trade metrics
//  7. Build and persist SimulationRecord
func (r *Runner) Run(ctx context.Context, callID string, plan *domain.ExitPlan, positionNotionalUSD float64) (*domain.SimulationRecord, error) {
	// 1. Load call by ID
	call, err := r.callStore.GetByID(ctx, callID)
	if err != nil {
		return nil, err // propagates storage.ErrNotFound
	}

	// 2. Validate plan at package boundary
	if plan == nil {
		return nil, fmt.Errorf("%w: nil plan", domain.ErrInvalidInput)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if positionNotionalUSD <= 0 {
		return nil, fmt.Errorf("%w: position notional must be positive", domain.ErrInvalidInput)
	}

	// 3. Load candle history for the call's mint
	candles, err := r.candleStore.GetByMint(ctx, call.Mint)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}

	started := time.Now()

	// 4. Compute indicator series over the full history so warm-up
	// happens on bars before the entry
	series := indicator.Compute(candles, r.indicatorCfg)

	// 5. Simulate
	result, err := exitplan.Simulate(&exitplan.Input{
		Candles:          candles,
		EntryTimestampMs: call.CalledAtMs,
		EntryPrice:       call.CallPrice,
		Plan:             plan,
		Indicators:       series,
	})
	if err != nil {
		return nil, err
	}

	// 6. Reduce fills to trade metrics
	metrics, err := reduce.Reduce(result.Fills, positionNotionalUSD, call.CallPrice, plan.Frictions)
	if err != nil {
		return nil, err
	}

	// 7. Build SimulationRecord
	planID := plan.ID()
	record := &domain.SimulationRecord{
		RunID:               idhash.ComputeRunID(call.CallID, planID, call.CalledAtMs),
		CallID:              call.CallID,
		PlanID:              planID,
		EntryTimestampMs:    call.CalledAtMs,
		EntryPrice:          call.CallPrice,
		PositionNotionalUSD: positionNotionalUSD,
		ExitTimestampMs:     result.ExitTimestampMs,
		ExitReason:          result.ExitReason,
		FillCount:           len(result.Fills),
		ReEntryCount:        result.ReEntryCount,
		GrossReturnPct:      metrics.GrossReturnPct,
		NetReturnPct:        metrics.NetReturnPct,
		FeesUSD:             metrics.FeesUSD,
		ExitPriceVWAP:       metrics.ExitPriceVWAP,
		NoExit:              metrics.NoExit,
		OutcomeClass:        reduce.Classify(metrics.NetReturnPct),
	}

	observability.RecordSimulation(record.OutcomeClass, time.Since(started).Seconds(), len(candles))
	for _, fill := range result.Fills {
		observability.RecordFill(fill.Reason)
	}

	if r.simulationStore != nil {
		if err := r.simulationStore.Insert(ctx, record); err != nil {
			return nil, err
		}
	}

	return record, nil
}

// RunMatrix executes every plan against every call, collecting records.
// A call whose mint has no candles is skipped rather than failing the matrix.
func (r *Runner) RunMatrix(ctx context.Context, callIDs []string, plans []*domain.ExitPlan, positionNotionalUSD float64) ([]*domain.SimulationRecord, error) {
	var records []*domain.SimulationRecord

	for _, callID := range callIDs {
		for _, plan := range plans {
			record, err := r.Run(ctx, callID, plan, positionNotionalUSD)
			if err != nil {
				if errors.Is(err, ErrNoCandles) {
					continue
				}
				return nil, fmt.Errorf("run call %s plan %s: %w", callID, plan.ID(), err)
			}
			records = append(records, record)
		}
	}

	return records, nil
}
