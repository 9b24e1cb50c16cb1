package indicator

import "math"

// emaSeries computes an exponential moving average per bar.
// The first value appears at index period-1 seeded with the SMA of the first
// period closes; earlier indices are nil (warm-up).
func emaSeries(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ptr(ema)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ptr(ema)
	}

	return out
}

// rsiSeries computes Wilder-smoothed RSI per bar.
// The first value appears at index period; earlier indices are nil.
func rsiSeries(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	gains := 0.0
	losses := 0.0
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	out[period] = ptr(rsiFrom(avgGain, avgLoss))

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain := 0.0
		loss := 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = ptr(rsiFrom(avgGain, avgLoss))
	}

	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// zScoreSeries computes a trailing z-score per bar over a window that
// includes the current bar. The first value appears at index window-1.
// A zero-variance window yields a zero score.
func zScoreSeries(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 1 || len(values) < window {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}
		mean := sum / float64(window)

		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		variance /= float64(window)

		if variance == 0 {
			out[i] = ptr(0.0)
			continue
		}
		out[i] = ptr((values[i] - mean) / math.Sqrt(variance))
	}

	return out
}

func ptr(v float64) *float64 {
	return &v
}
