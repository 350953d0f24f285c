package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// PointEvents 按原因统计已提交的积分流水
	PointEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_events_total",
			Help: "Committed point ledger events by reason and direction",
		},
		[]string{"reason", "direction"},
	)

	QuizSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Quiz submissions by kind (first, retake) and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ScheduledReleases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_releases_total",
			Help: "Lessons and chapters moved from scheduled to published",
		},
		[]string{"kind"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PointEvents)
	prometheus.MustRegister(QuizSubmissions)
	prometheus.MustRegister(ScheduledReleases)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
