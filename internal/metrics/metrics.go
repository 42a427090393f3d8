package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus 指標，透過 /metrics 暴露
var (
	// API 指標
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grocery_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grocery_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// 商品目錄指標
	CatalogCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grocery_catalog_calls_total",
			Help: "Total number of catalog tool calls",
		},
		[]string{"tool", "result"},
	)

	CatalogCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grocery_catalog_call_duration_seconds",
			Help:    "Duration of catalog tool calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	CatalogBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grocery_catalog_breaker_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// 快取指標
	SearchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grocery_search_cache_hits_total",
			Help: "Total number of product search cache hits",
		},
	)

	SearchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grocery_search_cache_misses_total",
			Help: "Total number of product search cache misses",
		},
	)

	// 比對指標
	IngredientMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grocery_ingredient_matches_total",
			Help: "Ingredient match outcomes by status",
		},
		[]string{"status"},
	)

	MatchBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grocery_match_batch_duration_seconds",
			Help:    "Duration of an ingredient match batch in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// 分析指標
	OrdersSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grocery_orders_synced_total",
			Help: "Total number of orders synced from the catalog",
		},
	)

	OrderItemsSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grocery_order_items_synced_total",
			Help: "Total number of order items extracted during sync",
		},
	)

	FrequencyRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grocery_frequency_recompute_duration_seconds",
			Help:    "Duration of a purchase frequency recompute in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FrequencyRecordsCalculated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grocery_frequency_records_calculated_total",
			Help: "Total number of purchase frequency records written",
		},
	)

	// 工作池指標
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grocery_queue_depth",
			Help: "Current number of jobs waiting in the worker queue",
		},
	)
)

// RecordAPIRequest 記錄 API 請求
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCatalogCall 記錄目錄工具調用
func RecordCatalogCall(tool string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	CatalogCallsTotal.WithLabelValues(tool, result).Inc()
	CatalogCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordMatch 記錄單一食材比對結果
func RecordMatch(status string) {
	IngredientMatches.WithLabelValues(status).Inc()
}

// RecordSync 記錄訂單同步
func RecordSync(orders, items int) {
	OrdersSynced.Add(float64(orders))
	OrderItemsSynced.Add(float64(items))
}

// RecordRecompute 記錄頻率重算
func RecordRecompute(duration time.Duration, calculated int) {
	FrequencyRecomputeDuration.Observe(duration.Seconds())
	FrequencyRecordsCalculated.Add(float64(calculated))
}
