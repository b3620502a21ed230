// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアント、キャッシュ、ワークフローから利用する。
type MetricsCollector interface {
	RecordAPIRequest(method string, statusCode int, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheCoalesced()
	RecordCacheInvalidation(count int)
	RecordMutation(operation string, success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	apiRequests        *prometheus.CounterVec
	apiLatency         prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheCoalesced     prometheus.Counter
	cacheInvalidations prometheus.Counter
	mutations          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharebite_api_requests_total",
			Help: "ドメインAPI呼び出しのメソッド・ステータスコード別の合計数",
		}, []string{"method", "status_code"}),
		apiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sharebite_api_latency_seconds",
			Help:    "ドメインAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharebite_cache_hits_total",
			Help: "キャッシュヒットの合計数",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharebite_cache_misses_total",
			Help: "キャッシュミスの合計数",
		}),
		cacheCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharebite_cache_coalesced_total",
			Help: "実行中のフェッチに合流した読み取りの合計数",
		}),
		cacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharebite_cache_invalidations_total",
			Help: "無効化されたキャッシュエントリの合計数",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharebite_mutations_total",
			Help: "ミューテーションの操作・結果別の合計数",
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(
		c.apiRequests,
		c.apiLatency,
		c.cacheHits,
		c.cacheMisses,
		c.cacheCoalesced,
		c.cacheInvalidations,
		c.mutations,
	)

	return c
}

// RecordAPIRequest はAPI呼び出しの結果とレイテンシを記録する。
// ネットワークエラーで応答がない場合はstatusCode 0で記録される。
func (c *Collector) RecordAPIRequest(method string, statusCode int, duration time.Duration) {
	c.apiRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.apiLatency.Observe(duration.Seconds())
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordCacheCoalesced は実行中フェッチへの合流を記録する。
func (c *Collector) RecordCacheCoalesced() {
	c.cacheCoalesced.Inc()
}

// RecordCacheInvalidation は無効化されたエントリ数を記録する。
func (c *Collector) RecordCacheInvalidation(count int) {
	c.cacheInvalidations.Add(float64(count))
}

// RecordMutation はミューテーションの結果を記録する。
// 操作キーに含まれるエンティティIDはラベルの基数を抑えるため取り除く。
func (c *Collector) RecordMutation(operation string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.mutations.WithLabelValues(operationLabel(operation), outcome).Inc()
}

// operationLabel は"updateFood/food-1"のような操作キーから操作名だけを取り出す。
func operationLabel(operation string) string {
	for i := 0; i < len(operation); i++ {
		if operation[i] == '/' {
			return operation[:i]
		}
	}
	return operation
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
