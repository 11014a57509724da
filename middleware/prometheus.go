package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "code"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	responseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path", "code"},
	)

	userOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_operations_total",
			Help: "User service operations by outcome",
		},
		[]string{"operation", "result"},
	)

	wishlistSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wishlist_size",
			Help:    "Number of products in a wishlist after a change",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)
)

var infrastructurePaths = []string{
	"/health", "/healthz", "/ready", "/readyz", "/livez",
	"/metrics", "/favicon.ico",
}

// isInfrastructurePath reports probe and scrape endpoints, which are kept out of
// request metrics and traces to avoid skew and cardinality.
func isInfrastructurePath(path string) bool {
	for _, p := range infrastructurePaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// PrometheusMiddleware records RED metrics labelled by route template.
// Unmatched routes share the "unmatched" label so 404 scans cannot explode cardinality.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isInfrastructurePath(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		statusCode := strconv.Itoa(c.Writer.Status())

		requestDuration.WithLabelValues(method, path, statusCode).Observe(time.Since(start).Seconds())
		requestTotal.WithLabelValues(method, path, statusCode).Inc()
		responseSize.WithLabelValues(method, path, statusCode).Observe(float64(c.Writer.Size()))
	}
}

// RecordUserOperation counts a service operation; err == nil is "success"
func RecordUserOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	userOperations.WithLabelValues(operation, result).Inc()
}

// ObserveWishlistSize records the size of a wishlist after an add or remove
func ObserveWishlistSize(n int) {
	wishlistSize.Observe(float64(n))
}
