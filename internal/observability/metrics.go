// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	CandlesIngested    prometheus.Counter
	CandlesStored      prometheus.Counter
	IngestionErrors    *prometheus.CounterVec
	KlineReconnects    prometheus.Counter
	KlineStreamsActive prometheus.Gauge

	// Simulation metrics
	SimulationsRun     *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	FillsByReason      *prometheus.CounterVec
	CandlesReplayed    prometheus.Counter

	// Aggregation metrics
	AggregatesComputed prometheus.Counter
	ReportsGenerated   prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastCandleTimestamp     *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "crypto_call_lab"
	}

	return &Metrics{
		// Ingestion metrics
		CandlesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candles_ingested_total",
			Help:      "Total number of closed candles received from the kline feed",
		}),
		CandlesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candles_stored_total",
			Help:      "Total number of candles stored to the candle store",
		}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by type",
		}, []string{"error_type"}),
		KlineReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "kline_reconnects_total",
			Help:      "Total number of kline websocket reconnect attempts",
		}),
		KlineStreamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "kline_streams_active",
			Help:      "Current number of subscribed kline streams",
		}),

		// Simulation metrics
		SimulationsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulations run by outcome class",
		}, []string{"outcome"}),
		SimulationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Single simulation run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		FillsByReason: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "fills_total",
			Help:      "Total number of simulated fills by reason",
		}, []string{"reason"}),
		CandlesReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "candles_replayed_total",
			Help:      "Total number of candles replayed across all simulations",
		}),

		// Aggregation metrics
		AggregatesComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "aggregates_computed_total",
			Help:      "Total number of plan aggregates computed",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successfully stored candle",
		}),
		LastCandleTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_candle_timestamp_ms",
			Help:      "Open timestamp in ms of the most recent candle per mint",
		}, []string{"mint"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCandleIngested increments the candles ingested counter.
func RecordCandleIngested() {
	DefaultMetrics.CandlesIngested.Inc()
}

// RecordCandleStored records a successfully stored candle.
func RecordCandleStored(mint string, openTimeMs int64, storedAtUnix int64) {
	DefaultMetrics.CandlesStored.Inc()
	DefaultMetrics.LastCandleTimestamp.WithLabelValues(mint).Set(float64(openTimeMs))
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(storedAtUnix))
}

// RecordIngestionError records an ingestion error by type.
func RecordIngestionError(errorType string) {
	DefaultMetrics.IngestionErrors.WithLabelValues(errorType).Inc()
}

// RecordKlineReconnect increments the reconnect counter.
func RecordKlineReconnect() {
	DefaultMetrics.KlineReconnects.Inc()
}

// RecordSimulation records a completed simulation run.
func RecordSimulation(outcome string, durationSeconds float64, candlesReplayed int) {
	DefaultMetrics.SimulationsRun.WithLabelValues(outcome).Inc()
	DefaultMetrics.SimulationDuration.Observe(durationSeconds)
	DefaultMetrics.CandlesReplayed.Add(float64(candlesReplayed))
}

// RecordFill records a simulated fill by exit reason.
func RecordFill(reason string) {
	DefaultMetrics.FillsByReason.WithLabelValues(reason).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
