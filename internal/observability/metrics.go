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
	// Scheduler metrics
	TicksTotal          prometheus.Counter
	StrategiesEvaluated prometheus.Counter
	StrategiesFired     *prometheus.CounterVec
	StrategiesSkipped   *prometheus.CounterVec

	// Resolver metrics
	TradeRequestsResolved prometheus.Counter
	WalletsSkipped        *prometheus.CounterVec

	// Submission metrics
	BundlesSubmitted    *prometheus.CounterVec
	SubmissionRetries   prometheus.Counter
	SubmissionLatency   prometheus.Histogram
	RateLimiterWaitTime prometheus.Histogram

	// Feed metrics
	TradesIngested   prometheus.Counter
	FeedReconnects   prometheus.Counter
	SnapshotAgeGauge prometheus.Gauge

	// Health metrics
	LastSuccessfulTick   prometheus.Gauge
	LastSuccessfulSubmit prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_autotrader"
	}

	return &Metrics{
		// Scheduler metrics
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of evaluation ticks",
		}),
		StrategiesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "strategies_evaluated_total",
			Help:      "Total number of strategy evaluations",
		}),
		StrategiesFired: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "strategies_fired_total",
			Help:      "Total number of strategy fires by strategy",
		}, []string{"strategy_id"}),
		StrategiesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "strategies_skipped_total",
			Help:      "Total number of strategies skipped by reason",
		}, []string{"reason"}),

		// Resolver metrics
		TradeRequestsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "trade_requests_total",
			Help:      "Total number of trade requests resolved",
		}),
		WalletsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "wallets_skipped_total",
			Help:      "Total number of wallets skipped by reason",
		}, []string{"reason"}),

		// Submission metrics
		BundlesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "bundles_total",
			Help:      "Total number of bundle submissions by outcome",
		}, []string{"outcome", "critical"}),
		SubmissionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "retries_total",
			Help:      "Total number of submission retry attempts",
		}),
		SubmissionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "latency_seconds",
			Help:      "End-to-end bundle submission latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RateLimiterWaitTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "rate_limiter_wait_seconds",
			Help:      "Time spent waiting on the submission rate limiter",
			Buckets:   prometheus.DefBuckets,
		}),

		// Feed metrics
		TradesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "trades_ingested_total",
			Help:      "Total number of market trades ingested",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnects",
		}),
		SnapshotAgeGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "snapshot_age_seconds",
			Help:      "Age of the latest market snapshot in seconds",
		}),

		// Health metrics
		LastSuccessfulTick: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_tick_timestamp",
			Help:      "Unix timestamp of the last completed tick",
		}),
		LastSuccessfulSubmit: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_submit_timestamp",
			Help:      "Unix timestamp of the last successful bundle submission",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTick increments the tick counter and stamps the health gauge.
func RecordTick(unixNow float64) {
	DefaultMetrics.TicksTotal.Inc()
	DefaultMetrics.LastSuccessfulTick.Set(unixNow)
}

// RecordEvaluation increments the evaluation counter.
func RecordEvaluation() {
	DefaultMetrics.StrategiesEvaluated.Inc()
}

// RecordFire increments the fire counter for a strategy.
func RecordFire(strategyID string) {
	DefaultMetrics.StrategiesFired.WithLabelValues(strategyID).Inc()
}

// RecordSkip increments the skip counter for a reason.
func RecordSkip(reason string) {
	DefaultMetrics.StrategiesSkipped.WithLabelValues(reason).Inc()
}

// RecordTradeRequest increments the resolved trade request counter.
func RecordTradeRequest() {
	DefaultMetrics.TradeRequestsResolved.Inc()
}

// RecordWalletSkip increments the wallet skip counter for a reason.
func RecordWalletSkip(reason string) {
	DefaultMetrics.WalletsSkipped.WithLabelValues(reason).Inc()
}

// RecordBundle records one bundle submission outcome.
func RecordBundle(outcome string, critical bool, latencySeconds float64) {
	criticalLabel := "false"
	if critical {
		criticalLabel = "true"
	}
	DefaultMetrics.BundlesSubmitted.WithLabelValues(outcome, criticalLabel).Inc()
	DefaultMetrics.SubmissionLatency.Observe(latencySeconds)
}

// RecordRetry increments the retry counter.
func RecordRetry() {
	DefaultMetrics.SubmissionRetries.Inc()
}

// RecordLimiterWait records time spent in the rate limiter.
func RecordLimiterWait(seconds float64) {
	DefaultMetrics.RateLimiterWaitTime.Observe(seconds)
}

// RecordSnapshotAge sets the market snapshot age gauge.
func RecordSnapshotAge(seconds float64) {
	DefaultMetrics.SnapshotAgeGauge.Set(seconds)
}

// RecordTradeIngested increments the feed trade counter.
func RecordTradeIngested() {
	DefaultMetrics.TradesIngested.Inc()
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}
