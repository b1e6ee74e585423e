package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uchef_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uchef_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// OrdersPlaced counts orders that passed the availability gate and were
	// committed.
	OrdersPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "uchef_orders_placed_total",
			Help: "Total number of orders successfully placed",
		},
	)

	// OrdersRejected counts orders rejected at the pre-flight availability
	// gate.
	OrdersRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "uchef_orders_rejected_total",
			Help: "Total number of orders rejected for ingredient shortfall",
		},
	)

	// IngredientDecrements counts inventory decrement attempts by outcome
	// (applied, contended).
	IngredientDecrements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uchef_ingredient_decrements_total",
			Help: "Total number of ingredient stock decrement attempts",
		},
		[]string{"outcome"},
	)

	// NotificationFailures counts notification deliveries that were swallowed.
	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "uchef_notification_failures_total",
			Help: "Total number of failed (and logged) notification deliveries",
		},
	)

	// PaymentBreakerState tracks the payment processor circuit breaker state
	// (0=closed, 1=open, 2=half-open)
	PaymentBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "uchef_payment_circuit_breaker_state",
			Help: "Payment processor circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)
)

// RequestMetrics returns a gin middleware recording request counts and
// latencies per route.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
