// Package metrics exposes HTTP and catalog import metrics for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	importRuns     *prometheus.CounterVec
	importedOption prometheus.Gauge
}

// NewCollector registers the metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategy_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "strategy_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		importRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategy_option_import_runs_total",
			Help: "Option catalog imports by result.",
		}, []string{"result"}),
		importedOption: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strategy_option_catalog_size",
			Help: "Options loaded by the last successful import.",
		}),
	}

	reg.MustRegister(c.requests, c.latency, c.importRuns, c.importedOption)
	return c
}

// Middleware records one sample per request. Unmatched routes share the
// "unmatched" label so 404 scans cannot blow up cardinality.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.requests.WithLabelValues(route, method, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.latency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

func (c *Collector) RecordImportSuccess(count int) {
	c.importRuns.WithLabelValues("success").Inc()
	c.importedOption.Set(float64(count))
}

func (c *Collector) RecordImportFailure() {
	c.importRuns.WithLabelValues("failure").Inc()
}

// Handler serves the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
