// Package metrics 定义 Feed 引擎的 Prometheus 指标。
//
// 指标分类：
//   - Feed 请求：按结果（cache_hit / computed / fallback）计数，链路耗时
//   - 协同过滤：超时 / 错误降级次数
//   - 行为上报：按 action 与结果计数
//   - 缓存：失效次数、缓存错误次数
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Feed 请求结果
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeComputed = "computed"
	OutcomeFallback = "fallback"
)

var (
	// FeedRequestsTotal 按结果统计 Feed 请求
	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_feed_requests_total",
			Help: "Total number of personalized feed requests by outcome",
		},
		[]string{"outcome"},
	)

	// FeedDuration Feed 请求耗时
	FeedDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedrank_feed_duration_seconds",
			Help:    "Duration of personalized feed requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.15, 0.25, 0.5, 1},
		},
		[]string{"outcome"},
	)

	// FallbackReasonsTotal 降级原因（fetch_error / deadline / pipeline_error）
	FallbackReasonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_fallback_total",
			Help: "Total number of fallback feeds by reason",
		},
		[]string{"reason"},
	)

	// CollaborativeDegradedTotal 协同过滤子分降级为中性值的次数
	CollaborativeDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_collaborative_degraded_total",
			Help: "Total number of collaborative subscores degraded to neutral",
		},
		[]string{"reason"},
	)

	// TrackedBehaviorsTotal 行为上报结果（stored / dropped / invalid）
	TrackedBehaviorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_tracked_behaviors_total",
			Help: "Total number of tracked behaviors by action and result",
		},
		[]string{"action", "result"},
	)

	// CacheInvalidationsTotal 用户级缓存失效次数
	CacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedrank_cache_invalidations_total",
			Help: "Total number of per-user feed cache invalidations",
		},
	)

	// CacheErrorsTotal 缓存操作错误（按操作）
	CacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_cache_errors_total",
			Help: "Total number of feed cache errors by operation",
		},
		[]string{"op"},
	)
)

// RecordFeed 记录一次 Feed 请求。
func RecordFeed(outcome string, d time.Duration) {
	FeedRequestsTotal.WithLabelValues(outcome).Inc()
	FeedDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordFallback 记录降级原因。
func RecordFallback(reason string) {
	FallbackReasonsTotal.WithLabelValues(reason).Inc()
}

// RecordCollaborativeDegraded 记录协同过滤降级。
func RecordCollaborativeDegraded(reason string) {
	CollaborativeDegradedTotal.WithLabelValues(reason).Inc()
}

// RecordTracked 记录行为上报结果。
func RecordTracked(action, result string) {
	TrackedBehaviorsTotal.WithLabelValues(action, result).Inc()
}

// RecordCacheError 记录缓存错误。
func RecordCacheError(op string) {
	CacheErrorsTotal.WithLabelValues(op).Inc()
}
