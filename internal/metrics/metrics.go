package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "club",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "club",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// SummaryOutcomes counts summary generations by outcome: ok, cached,
	// rate_limited, auth_error, error.
	SummaryOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "club",
		Name:      "summary_outcomes_total",
		Help:      "Meeting summary generations by outcome.",
	}, []string{"outcome"})

	AttendanceRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "club",
		Name:      "attendance_batch_records_total",
		Help:      "Attendance rows written by batch recording.",
	})

	QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "club",
		Name:      "queue_messages_total",
		Help:      "Queue messages by type and result.",
	}, []string{"type", "result"})
)

// GinMiddleware records request counts and latency keyed by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
