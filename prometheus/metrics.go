package prometheus

import (
	"strconv"
	"time"

	"github.com/ELEVATE-Project/chat-communications/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Bridge operation metrics
	SignupCounter      prometheus.Counter
	LoginCounter       prometheus.Counter
	LogoutCounter      prometheus.Counter
	RoomCreateCounter  prometheus.Counter
	BridgeErrorCounter *prometheus.CounterVec

	// Remote platform call metrics
	RemoteCallHistogram *prometheus.HistogramVec

	// Database operation metrics
	DBOperationHistogram *prometheus.HistogramVec

	// Request metrics
	RequestDurationHistogram *prometheus.HistogramVec
	APIRequestCounter        *prometheus.CounterVec
	APIErrorCounter          *prometheus.CounterVec

	// Namespace prefix for metrics
	namespace string
)

// InitMetrics initializes all Prometheus metrics
func InitMetrics(cfg *config.Config) {
	namespace = cfg.Metrics.Prefix

	SignupCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signup_total",
		Help:      "Total number of chat signup requests",
	})

	LoginCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_total",
		Help:      "Total number of chat login requests",
	})

	LogoutCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logout_total",
		Help:      "Total number of chat logout requests",
	})

	RoomCreateCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "room_create_total",
		Help:      "Total number of room creation requests",
	})

	BridgeErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_errors_total",
			Help:      "Total number of bridge operation errors",
		},
		[]string{"operation", "kind"},
	)

	RemoteCallHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Duration of chat platform API calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBOperationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of database operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path"},
	)

	APIErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of API errors",
		},
		[]string{"method", "path", "status"},
	)
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Track API request count
			APIRequestCounter.With(prometheus.Labels{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).Inc()

			// Process the request
			err := next(c)

			// Track request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			RequestDurationHistogram.With(prometheus.Labels{
				"method": c.Request().Method,
				"path":   c.Path(),
				"status": status,
			}).Observe(duration)

			// Track errors
			if c.Response().Status >= 400 {
				APIErrorCounter.With(prometheus.Labels{
					"method": c.Request().Method,
					"path":   c.Path(),
					"status": status,
				}).Inc()
			}

			return err
		}
	}
}

// HandlerFunc returns a HTTP handler for metrics endpoint
func HandlerFunc() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// TrackDBOperation returns a function that tracks database operation duration.
// No-op until InitMetrics has run.
func TrackDBOperation(operation string) func(time.Time) {
	return func(startTime time.Time) {
		if DBOperationHistogram == nil {
			return
		}
		duration := time.Since(startTime).Seconds()
		DBOperationHistogram.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// TrackRemoteCall returns a function that tracks remote platform call duration.
// No-op until InitMetrics has run.
func TrackRemoteCall(operation string) func(time.Time) {
	return func(startTime time.Time) {
		if RemoteCallHistogram == nil {
			return
		}
		duration := time.Since(startTime).Seconds()
		RemoteCallHistogram.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// RecordBridgeError increments the bridge error counter
func RecordBridgeError(operation, kind string) {
	BridgeErrorCounter.With(prometheus.Labels{
		"operation": operation,
		"kind":      kind,
	}).Inc()
}
