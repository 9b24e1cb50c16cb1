package metrics

import (
	"context"
	"errors"
	"sort"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/storage"
)

// ErrNoRuns is returned when no simulation records are available for aggregation.
var ErrNoRuns = errors.New("no simulation records available for aggregation")

// Aggregator computes per-plan aggregates from simulation records.
type Aggregator struct {
	simulationStore storage.SimulationStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(simulationStore storage.SimulationStore) *Aggregator {
	return &Aggregator{simulationStore: simulationStore}
}

// ComputeAggregate computes the aggregate for a single plan.
// Returns ErrNoRuns if the plan has no simulation records.
func (a *Aggregator) ComputeAggregate(ctx context.Context, planID string) (*domain.PlanAggregate, error) {
	records, err := a.simulationStore.GetByPlanID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRuns
	}

	return computeFromRecords(planID, records), nil
}

// ComputeAll computes aggregates for every plan present in the store,
// sorted by plan ID for deterministic output.
func (a *Aggregator) ComputeAll(ctx context.Context) ([]*domain.PlanAggregate, error) {
	records, err := a.simulationStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRuns
	}

	byPlan := make(map[string][]*domain.SimulationRecord)
	for _, r := range records {
		byPlan[r.PlanID] = append(byPlan[r.PlanID], r)
	}

	planIDs := make([]string, 0, len(byPlan))
	for planID := range byPlan {
		planIDs = append(planIDs, planID)
	}
	sort.Strings(planIDs)

	aggregates := make([]*domain.PlanAggregate, len(planIDs))
	for i, planID := range planIDs {
		aggregates[i] = computeFromRecords(planID, byPlan[planID])
	}

	return aggregates, nil
}
