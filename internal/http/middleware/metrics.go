// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// HTTP traffic metrics are labelled by method, route template
// (/api/summary/history/:id) and status. Unrouted requests share the
// "unmatched" path label, which keeps series cardinality bounded.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

var sizeBuckets = []float64{
	200, 500, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20,
}

var (
	routeLabels  = []string{"method", "path"}
	statusLabels = []string{"method", "path", "status"}

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served, by route and status code.",
	}, statusLabels)

	// Completion calls dominate latency, hence the long tail buckets.
	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Time from the first middleware to the last byte written.",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, routeLabels)

	requestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_inflight",
		Help: "HTTP requests currently being served.",
	})

	// Bounded above by the 1 MiB body limit.
	requestBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_size_bytes",
		Help:    "Declared request body size.",
		Buckets: sizeBuckets,
	}, routeLabels)

	responseBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "Response body bytes written.",
		Buckets: sizeBuckets,
	}, routeLabels)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, requestsInFlight, requestBytes, responseBytes)
}

// Metrics records request count, latency, in-flight gauge and body sizes.
// The collectors are exposed by mounting promhttp.Handler().
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestsInFlight.Inc()
		begin := time.Now()
		defer requestsInFlight.Dec()

		c.Next()

		route, verb := routeLabel(c), c.Request.Method
		requestsTotal.WithLabelValues(verb, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(verb, route).Observe(time.Since(begin).Seconds())
		if n := c.Request.ContentLength; n > 0 {
			requestBytes.WithLabelValues(verb, route).Observe(float64(n))
		}
		// Size stays -1 when no body was written (204, 304).
		if n := c.Writer.Size(); n >= 0 {
			responseBytes.WithLabelValues(verb, route).Observe(float64(n))
		}
	}
}

func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedRoute
}
