package indicator

import (
	"crypto-call-lab/internal/domain"
)

// Sample holds derived indicator values aligned to one candle.
// Nil fields mean the indicator is still in its warm-up period at that bar.
type Sample struct {
	TimestampMs int64
	EMAFast     *float64
	EMASlow     *float64
	RSI         *float64
	VolumeZ     *float64 // volume z-score over the trailing window
}

// Config selects indicator periods.
type Config struct {
	EMAFastPeriod int
	EMASlowPeriod int
	RSIPeriod     int
	VolumeWindow  int
}

// DefaultConfig returns the standard periods used across the lab.
func DefaultConfig() Config {
	return Config{
		EMAFastPeriod: 9,
		EMASlowPeriod: 21,
		RSIPeriod:     14,
		VolumeWindow:  20,
	}
}

// Series is an indicator series keyed by the candle timestamps it was
// computed from. Samples are ordered identically to the source candles.
type Series struct {
	samples []Sample
	byTime  map[int64]int
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.samples)
}

// AtIndex returns the sample at position i, or nil if out of range.
func (s *Series) AtIndex(i int) *Sample {
	if i < 0 || i >= len(s.samples) {
		return nil
	}
	return &s.samples[i]
}

// At returns the sample for a candle timestamp, or nil if absent.
func (s *Series) At(timestampMs int64) *Sample {
	i, ok := s.byTime[timestampMs]
	if !ok {
		return nil
	}
	return &s.samples[i]
}

// Compute derives the full indicator series from a candle sequence.
// Output is deterministic and aligned index-for-index with the input.
func Compute(candles []domain.Candle, cfg Config) *Series {
	n := len(candles)
	s := &Series{
		samples: make([]Sample, n),
		byTime:  make(map[int64]int, n),
	}

	for i, c := range candles {
		s.samples[i].TimestampMs = c.TimestampMs
		s.byTime[c.TimestampMs] = i
	}

	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	emaFast := emaSeries(closes, cfg.EMAFastPeriod)
	emaSlow := emaSeries(closes, cfg.EMASlowPeriod)
	rsi := rsiSeries(closes, cfg.RSIPeriod)
	volZ := zScoreSeries(volumes, cfg.VolumeWindow)

	for i := range s.samples {
		s.samples[i].EMAFast = emaFast[i]
		s.samples[i].EMASlow = emaSlow[i]
		s.samples[i].RSI = rsi[i]
		s.samples[i].VolumeZ = volZ[i]
	}

	return s
}
