package domain

// Candle is a single OHLCV bar from the ingestion layer.
// Candle series are ordered by strictly increasing timestamps; ordering and
// gap handling are the ingestion layer's responsibility, the simulator only
// asserts non-decreasing order.
type Candle struct {
	TimestampMs int64   // bar open time, Unix milliseconds
	Open        float64 // first traded price in bar
	High        float64 // highest traded price in bar
	Low         float64 // lowest traded price in bar
	Close       float64 // last traded price in bar
	Volume      float64 // base-asset volume in bar
}
