// Package metrics exposes mount and HTTP activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector. It implements the manager's Observer.
type Metrics struct {
	Operations *prometheus.CounterVec
	Assets     prometheus.Gauge
	LiveBlobs  prometheus.Gauge
	Rebuilds   prometheus.Counter

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetfs_operations_total",
				Help: "Mount manager operations by name and result",
			},
			[]string{"op", "result"},
		),
		Assets: f.NewGauge(prometheus.GaugeOpts{
			Name: "assetfs_assets",
			Help: "Entries in the current asset map",
		}),
		LiveBlobs: f.NewGauge(prometheus.GaugeOpts{
			Name: "assetfs_live_blobs",
			Help: "Blob URLs that are still resolvable",
		}),
		Rebuilds: f.NewCounter(prometheus.CounterOpts{
			Name: "assetfs_asset_rebuilds_total",
			Help: "Asset map rebuilds",
		}),
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetfs_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assetfs_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		gatherer: reg,
	}
}

// OperationDone records the outcome of a manager operation.
func (m *Metrics) OperationDone(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

// AssetsRebuilt records the size of the new asset map.
func (m *Metrics) AssetsRebuilt(count, liveBlobs int) {
	m.Rebuilds.Inc()
	m.Assets.Set(float64(count))
	m.LiveBlobs.Set(float64(liveBlobs))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records every request served by a gin router. Paths are
// labelled by route so blob ids do not explode cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
