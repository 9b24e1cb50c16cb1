package metrics

import (
	"math"
	"sort"

	"crypto-call-lab/internal/domain"
)

// computeFromRecords calculates all metrics for one plan's simulation records.
// Records are sorted by EntryTimestampMs ASC, RunID ASC before computing
// order-dependent metrics (MaxDrawdown, MaxConsecutiveLosses).
func computeFromRecords(planID string, records []*domain.SimulationRecord) *domain.PlanAggregate {
	n := len(records)
	if n == 0 {
		return &domain.PlanAggregate{PlanID: planID}
	}

	// Sort records deterministically by EntryTimestampMs ASC, RunID ASC
	sorted := make([]*domain.SimulationRecord, n)
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EntryTimestampMs != sorted[j].EntryTimestampMs {
			return sorted[i].EntryTimestampMs < sorted[j].EntryTimestampMs
		}
		return sorted[i].RunID < sorted[j].RunID
	})

	// Count wins/losses/no-exits and total fees
	wins := 0
	losses := 0
	noExits := 0
	totalFees := 0.0
	for _, r := range sorted {
		if r.OutcomeClass == domain.OutcomeClassWin {
			wins++
		} else {
			losses++
		}
		if r.NoExit {
			noExits++
		}
		totalFees += r.FeesUSD
	}

	// Extract net returns in chronological order for order-dependent calculations
	returns := make([]float64, n)
	for i, r := range sorted {
		returns[i] = r.NetReturnPct
	}

	// Sort returns for percentile calculations
	sortedReturns := make([]float64, n)
	copy(sortedReturns, returns)
	sort.Float64s(sortedReturns)

	mean := computeMean(returns)
	stddev := computeStddev(returns, mean)

	totalCalls, callWinRate := computeCallWinRate(sorted)

	return &domain.PlanAggregate{
		PlanID: planID,

		// Counts
		TotalRuns:   n,
		TotalCalls:  totalCalls,
		Wins:        wins,
		Losses:      losses,
		NoExitRuns:  noExits,
		WinRate:     computeWinRate(wins, n),
		CallWinRate: callWinRate,

		// Net return distribution
		NetMean:   mean,
		NetMedian: computePercentile(sortedReturns, 0.50),
		NetP10:    computePercentile(sortedReturns, 0.10),
		NetP25:    computePercentile(sortedReturns, 0.25),
		NetP75:    computePercentile(sortedReturns, 0.75),
		NetP90:    computePercentile(sortedReturns, 0.90),
		NetMin:    sortedReturns[0],
		NetMax:    sortedReturns[n-1],
		NetStddev: stddev,

		// Drawdown (order-dependent, uses chronological order)
		MaxDrawdown:          computeMaxDrawdown(returns),
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(returns),

		TotalFeesUSD: totalFees,
	}
}

// computeCallWinRate calculates call-level win rate. A call is winning when
// at least one of its runs has a positive net return.
func computeCallWinRate(records []*domain.SimulationRecord) (int, float64) {
	if len(records) == 0 {
		return 0, 0
	}

	callReturns := make(map[string][]float64)
	for _, r := range records {
		callReturns[r.CallID] = append(callReturns[r.CallID], r.NetReturnPct)
	}

	totalCalls := len(callReturns)
	winningCalls := 0

	for _, returns := range callReturns {
		for _, ret := range returns {
			if ret > 0 {
				winningCalls++
				break
			}
		}
	}

	return totalCalls, float64(winningCalls) / float64(totalCalls)
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean calculates arithmetic mean of returns.
func computeMean(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(returns []float64, mean float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, r := range returns {
		diff := r - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	// Linear interpolation
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative returns.
// Returns must be in chronological order.
func computeMaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds longest streak of net return <= 0.
// Returns must be in chronological order.
func computeMaxConsecutiveLosses(returns []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, r := range returns {
		if r <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
