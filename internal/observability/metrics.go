package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcdl_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gcdl_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	stockOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcdl_stock_operations_total",
		Help: "Stock ledger operations by kind and outcome",
	}, []string{"op", "result"})

	stockOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gcdl_stock_operation_duration_seconds",
		Help:    "Latency of stock ledger operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	notificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcdl_notifications_dropped_total",
		Help: "Change notifications dropped because a subscriber was not keeping up",
	})

	notifySubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gcdl_notify_subscribers",
		Help: "Currently connected change-notification subscribers",
	})
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveStockOp records a ledger operation; result is "ok" or an error kind.
func ObserveStockOp(op, result string, duration time.Duration) {
	stockOperations.WithLabelValues(op, result).Inc()
	stockOperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func NotificationDropped() { notificationsDropped.Inc() }

func SubscriberAdded() { notifySubscribers.Inc() }

func SubscriberRemoved() { notifySubscribers.Dec() }
