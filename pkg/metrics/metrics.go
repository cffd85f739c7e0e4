package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Dispatch metrics
	RidesRequestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rides_requested_total",
			Help: "Total number of rides requested",
		},
		[]string{"service"},
	)

	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_claims_total",
			Help: "Claim attempts by outcome",
		},
		[]string{"service", "outcome"},
	)

	ClaimDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ride_claim_duration_seconds",
			Help:    "Time to resolve a claim attempt",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_transitions_total",
			Help: "Applied ride status transitions",
		},
		[]string{"service", "from", "to"},
	)

	RidesExpiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rides_expired_total",
			Help: "Pending rides cancelled by the system after the TTL",
		},
		[]string{"service"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Push notifications by result (delivered, offline, failed, dropped)",
		},
		[]string{"service", "event", "result"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service", "role"},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"service", "operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	BrokerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_published_total",
			Help: "Total number of messages published to RabbitMQ or Kafka",
		},
		[]string{"service", "broker", "destination", "status"},
	)

	BrokerMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"service", "broker", "destination", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(service, operation string, err error, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(service, operation, status(err)).Inc()
	DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func RecordPublish(service, broker, destination string, err error) {
	BrokerMessagesPublished.WithLabelValues(service, broker, destination, status(err)).Inc()
}

func RecordConsume(service, broker, destination string, err error) {
	BrokerMessagesConsumed.WithLabelValues(service, broker, destination, status(err)).Inc()
}

// RecordClaim records a claim attempt. outcome is one of won, already_claimed,
// no_longer_available, timeout, error.
func RecordClaim(service, outcome string, duration time.Duration) {
	ClaimsTotal.WithLabelValues(service, outcome).Inc()
	ClaimDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func RecordTransition(service, from, to string) {
	TransitionsTotal.WithLabelValues(service, from, to).Inc()
}

func RecordNotification(service, event, result string) {
	NotificationsTotal.WithLabelValues(service, event, result).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
