// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	AICalls   *prometheus.CounterVec
	AIRetries *prometheus.CounterVec

	RealtimeClients prometheus.Gauge
	RealtimeEvents  *prometheus.CounterVec
}

// NewCollector builds a collector with its own registry, so tests can
// create as many as they like.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of repository operations",
			},
			[]string{"operation", "table", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Repository operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		AICalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_calls_total",
				Help:      "Total number of generative AI calls",
			},
			[]string{"operation", "outcome"},
		),
		AIRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_overload_retries_total",
				Help:      "Retries caused by provider overload",
			},
			[]string{"operation"},
		),
		RealtimeClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "realtime_clients",
				Help:      "Connected websocket clients",
			},
		),
		RealtimeEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "realtime_events_total",
				Help:      "Change events broadcast to subscribers",
			},
			[]string{"table", "type"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.StoreOperations,
		c.StoreDuration,
		c.AICalls,
		c.AIRetries,
		c.RealtimeClients,
		c.RealtimeEvents,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by route template.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.HTTPRequests.WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDuration.WithLabelValues(ctx.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveAICall counts one AI call. outcome is "ok" or an error class.
func (c *Collector) ObserveAICall(operation, outcome string) {
	c.AICalls.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) ObserveAIRetry(operation string) {
	c.AIRetries.WithLabelValues(operation).Inc()
}

func (c *Collector) ClientConnected()    { c.RealtimeClients.Inc() }
func (c *Collector) ClientDisconnected() { c.RealtimeClients.Dec() }

func (c *Collector) ObserveEvent(table, kind string) {
	c.RealtimeEvents.WithLabelValues(table, kind).Inc()
}
