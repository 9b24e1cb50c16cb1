package reporting

import (
	"context"
	"sort"
	"time"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/metrics"
	"crypto-call-lab/internal/observability"
	"crypto-call-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	callStore       storage.CallStore
	simulationStore storage.SimulationStore
	aggregator      *metrics.Aggregator
	now             func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(callStore storage.CallStore, simulationStore storage.SimulationStore) *Generator {
	return &Generator{
		callStore:       callStore,
		simulationStore: simulationStore,
		aggregator:      metrics.NewAggregator(simulationStore),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete leaderboard report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	aggs, err := g.aggregator.ComputeAll(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := g.generateDataSummary(ctx)
	if err != nil {
		return nil, err
	}

	observability.DefaultMetrics.AggregatesComputed.Add(float64(len(aggs)))
	observability.DefaultMetrics.ReportsGenerated.Inc()

	return &Report{
		GeneratedAt: g.now(),
		PlanCount:   len(aggs),
		DataSummary: *summary,
		Leaderboard: buildLeaderboard(aggs),
	}, nil
}

// generateDataSummary computes the data summary from calls and records.
func (g *Generator) generateDataSummary(ctx context.Context) (*DataSummary, error) {
	telegram, err := g.callStore.GetBySource(ctx, domain.CallSourceTelegram)
	if err != nil {
		return nil, err
	}
	manual, err := g.callStore.GetBySource(ctx, domain.CallSourceManual)
	if err != nil {
		return nil, err
	}

	records, err := g.simulationStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DataSummary{
		TotalCalls:    len(telegram) + len(manual),
		TelegramCalls: len(telegram),
		ManualCalls:   len(manual),
		TotalRuns:     len(records),
	}

	for i, r := range records {
		if i == 0 || r.EntryTimestampMs < summary.DateRangeStart {
			summary.DateRangeStart = r.EntryTimestampMs
		}
		if r.EntryTimestampMs > summary.DateRangeEnd {
			summary.DateRangeEnd = r.EntryTimestampMs
		}
	}

	return summary, nil
}

// buildLeaderboard converts aggregates to rows sorted by net mean DESC,
// plan_id ASC on ties.
func buildLeaderboard(aggs []*domain.PlanAggregate) []PlanRow {
	rows := make([]PlanRow, len(aggs))
	for i, a := range aggs {
		rows[i] = PlanRow{
			PlanID:               a.PlanID,
			TotalRuns:            a.TotalRuns,
			TotalCalls:           a.TotalCalls,
			WinRate:              a.WinRate,
			CallWinRate:          a.CallWinRate,
			NetMean:              a.NetMean,
			NetMedian:            a.NetMedian,
			NetP10:               a.NetP10,
			NetP90:               a.NetP90,
			MaxDrawdown:          a.MaxDrawdown,
			MaxConsecutiveLosses: a.MaxConsecutiveLosses,
			NoExitRuns:           a.NoExitRuns,
			TotalFeesUSD:         a.TotalFeesUSD,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].NetMean != rows[j].NetMean {
			return rows[i].NetMean > rows[j].NetMean
		}
		return rows[i].PlanID < rows[j].PlanID
	})

	return rows
}
