// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indexer.
type Metrics struct {
	// Scan metrics
	LogsFetched      prometheus.Counter
	RateLimitRetries prometheus.Counter
	ScansTotal       *prometheus.CounterVec
	ScanDuration     prometheus.Histogram
	HighestBlockSeen prometheus.Gauge

	// Decode metrics
	TradesDecoded prometheus.Counter
	DecodeSkips   *prometheus.CounterVec

	// Merge/store metrics
	TradesStored  prometheus.Counter
	CandlesStored prometheus.Counter
	TradeSetSize  prometheus.Gauge

	// Feed metrics
	FeedTradesReceived prometheus.Counter
	FeedReconnects     prometheus.Counter

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "launchpad_indexer"
	}

	return &Metrics{
		LogsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "logs_fetched_total",
			Help:      "Total number of event logs fetched from RPC",
		}),
		RateLimitRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "rate_limit_retries_total",
			Help:      "Total number of chunk retries caused by provider rate limits",
		}),
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of scan runs by outcome",
		}, []string{"status"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Full scan pipeline duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		HighestBlockSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "highest_block_seen",
			Help:      "Highest block number observed",
		}),
		TradesDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "trades_total",
			Help:      "Total number of trade events decoded",
		}),
		DecodeSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "skips_total",
			Help:      "Total number of log entries skipped by the decoder",
		}, []string{"reason"}),
		TradesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_stored_total",
			Help:      "Total number of trades written to storage",
		}),
		CandlesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candles_stored_total",
			Help:      "Total number of candles written to storage",
		}),
		TradeSetSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trade_set_size",
			Help:      "Current size of the in-memory merged trade set",
		}),
		FeedTradesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "trades_received_total",
			Help:      "Total number of trades received from the realtime feed",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnect attempts",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evm",
			Name:      "rpc_call_latency_seconds",
			Help:      "Ethereum RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordLogsFetched adds fetched log entries to the scan counter.
func RecordLogsFetched(n int) {
	DefaultMetrics.LogsFetched.Add(float64(n))
}

// RecordRateLimitRetry increments the rate-limit retry counter.
func RecordRateLimitRetry() {
	DefaultMetrics.RateLimitRetries.Inc()
}

// RecordScan records a scan run outcome and duration.
func RecordScan(status string, seconds float64) {
	DefaultMetrics.ScansTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ScanDuration.Observe(seconds)
}

// UpdateHighestBlock updates the highest block gauge.
func UpdateHighestBlock(block int64) {
	DefaultMetrics.HighestBlockSeen.Set(float64(block))
}

// RecordTradeDecoded increments the decoded trade counter.
func RecordTradeDecoded() {
	DefaultMetrics.TradesDecoded.Inc()
}

// RecordDecodeSkip records a skipped log entry.
func RecordDecodeSkip(reason string) {
	DefaultMetrics.DecodeSkips.WithLabelValues(reason).Inc()
}

// RecordTradesStored adds stored trades to the ingestion counter.
func RecordTradesStored(n int) {
	DefaultMetrics.TradesStored.Add(float64(n))
}

// RecordCandlesStored adds stored candles to the ingestion counter.
func RecordCandlesStored(n int) {
	DefaultMetrics.CandlesStored.Add(float64(n))
}

// UpdateTradeSetSize updates the merged trade set gauge.
func UpdateTradeSetSize(n int) {
	DefaultMetrics.TradeSetSize.Set(float64(n))
}

// RecordFeedTrade increments the realtime feed trade counter.
func RecordFeedTrade() {
	DefaultMetrics.FeedTradesReceived.Inc()
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
