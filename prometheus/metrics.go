package prometheus

import (
	"strconv"
	"time"

	"tenant-service/pkg/config"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provisioning metrics
	ProvisionCounter           *prometheus.CounterVec
	ProvisionDurationHistogram prometheus.Histogram
	RollbackCounter            prometheus.Counter
	RollbackFailureCounter     prometheus.Counter
	ActiveTenantsGauge         prometheus.Gauge

	// Mirror sync metrics
	MirrorSyncCounter *prometheus.CounterVec

	// Routing metrics
	ConnectionResolutionCounter *prometheus.CounterVec
	PermissionCheckCounter      *prometheus.CounterVec

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

	// Provisioning metrics
	ProvisionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_total",
			Help:      "Total number of tenant provisioning attempts",
		},
		[]string{"outcome"},
	)

	ProvisionDurationHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provision_duration_seconds",
		Help:      "Duration of tenant provisioning in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	RollbackCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provision_rollback_total",
		Help:      "Total number of compensating company-row deletes",
	})

	RollbackFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provision_rollback_failure_total",
		Help:      "Total number of failed compensating deletes (orphaned companies)",
	})

	ActiveTenantsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_tenants",
		Help:      "Number of provisioned tenants",
	})

	// Mirror sync metrics
	MirrorSyncCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_sync_total",
			Help:      "Total number of mirror sync attempts",
		},
		[]string{"outcome"},
	)

	// Routing metrics
	ConnectionResolutionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_resolution_total",
			Help:      "Total number of tenant connection resolutions",
		},
		[]string{"outcome"},
	)

	PermissionCheckCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_check_total",
			Help:      "Total number of permission checks",
		},
		[]string{"result"},
	)

	// Database operation metrics
	DBOperationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of database operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Request metrics
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
			Name:      "api_request_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path"},
	)

	APIErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_error_total",
			Help:      "Total number of API errors",
		},
		[]string{"method", "path", "status"},
	)
}

// TrackDBOperation returns a function that records the duration of a
// database operation when called. Use with defer:
//
//	defer prometheus.TrackDBOperation("insert")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		if DBOperationHistogram != nil {
			DBOperationHistogram.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		}
	}
}

// RecordMirrorSync counts one mirror sync attempt by outcome
func RecordMirrorSync(outcome string) {
	if MirrorSyncCounter != nil {
		MirrorSyncCounter.WithLabelValues(outcome).Inc()
	}
}

// RecordProvision counts one provisioning attempt by outcome
func RecordProvision(outcome string) {
	if ProvisionCounter != nil {
		ProvisionCounter.WithLabelValues(outcome).Inc()
	}
}

// MetricsMiddleware returns an Echo middleware that records request metrics
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			path := c.Path()
			method := c.Request().Method

			APIRequestCounter.WithLabelValues(method, path).Inc()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			statusLabel := strconv.Itoa(status)
			RequestDurationHistogram.WithLabelValues(method, path, statusLabel).Observe(time.Since(start).Seconds())
			if status >= 400 {
				APIErrorCounter.WithLabelValues(method, path, statusLabel).Inc()
			}

			return err
		}
	}
}
