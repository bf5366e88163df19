package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var msBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000}

var (
	CatalogFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_catalog_fetch_total",
		Help: "District resource fetches by result (ok|missing|invalid)",
	}, []string{"result"})
	CatalogDistricts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coverage_catalog_districts",
		Help: "Number of district features in the loaded catalog",
	})
	CatalogLoadDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverage_catalog_load_duration_ms",
		Help:    "Catalog load duration in milliseconds",
		Buckets: msBuckets,
	})
	GeometryFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_geometry_failures_total",
		Help: "Geometry operations that failed and were treated as empty",
	}, []string{"op"})
	MaskRecomputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_mask_recompute_total",
		Help: "Coverage mask computations by outcome (none|union|pieces|cached)",
	}, []string{"outcome"})
	MaskRecomputeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverage_mask_recompute_duration_ms",
		Help:    "Coverage mask computation duration in milliseconds",
		Buckets: msBuckets,
	})
	ControllerEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_controller_events_total",
		Help: "Interaction events handled by the controller",
	}, []string{"event", "status"})
	KVOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_kv_ops_total",
		Help: "Key-value backend operations",
	}, []string{"backend", "op", "status"})
	ExportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_exports_total",
		Help: "Total number of config exports",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_http_requests_total",
		Help: "HTTP requests by method and status class (2xx|3xx|4xx|5xx)",
	}, []string{"method", "class"})
	HTTPRequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverage_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: msBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		CatalogFetchTotal,
		CatalogDistricts,
		CatalogLoadDurationMs,
		GeometryFailuresTotal,
		MaskRecomputeTotal,
		MaskRecomputeDurationMs,
		ControllerEventsTotal,
		KVOpsTotal,
		ExportsTotal,
		RateLimitedTotal,
		HTTPRequestsTotal,
		HTTPRequestDurationMs,
	)
}

// 文档注释：返回 Prometheus 指标监听器，在 API_BASE/metrics 挂载
func Handler() http.Handler { return promhttp.Handler() }
