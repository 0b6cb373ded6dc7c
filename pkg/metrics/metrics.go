package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PublishedEnvelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_published_envelopes_total",
			Help: "Total number of envelopes handed to the bus (count)",
		},
		[]string{"family", "status"},
	)

	RelayedEnvelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relayed_envelopes_total",
			Help: "Total number of envelopes processed by the relay (count)",
		},
		[]string{"family", "status"},
	)

	RelayDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_relay_delivery_duration_ms",
			Help:    "Per-envelope relay dispatch duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"family"},
	)

	DroppedEnvelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_dropped_envelopes_total",
			Help: "Total number of envelopes dropped by the relay (count)",
		},
		[]string{"reason"},
	)

	UnreadIncrementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_unread_increments_total",
			Help: "Total number of unread-counter increments on failed delivery (count)",
		},
	)

	FilteredMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_filtered_messages_total",
			Help: "Total number of messages blocked by content filter rules (count)",
		},
		[]string{"family"},
	)

	HistoryAppendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_history_append_duration_ms",
			Help:    "History store append duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_sessions",
			Help: "Number of live WebSocket sessions registered (count)",
		},
	)

	ActiveChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_channels",
			Help: "Number of channels with at least one live session (count)",
		},
	)

	NotificationDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatch_total",
			Help: "Total number of notification dispatch attempts (count)",
		},
		[]string{"status"},
	)

	NotificationQueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_queue_size",
			Help: "Number of notification jobs waiting in the dispatch queue (count)",
		},
	)

	ArchivedEnvelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_archived_envelopes_total",
			Help: "Total number of envelopes mirrored to the archive topic (count)",
		},
		[]string{"topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_dlq_messages_total",
			Help: "Total number of envelopes sent to the dead-letter topic (count)",
		},
		[]string{"reason"},
	)

	BusReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_reconnects_total",
			Help: "Total number of bus subscription re-establishments (count)",
		},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

func RegisterChatMetrics() {
	prometheus.MustRegister(
		PublishedEnvelopesTotal,
		RelayedEnvelopesTotal,
		RelayDeliveryDuration,
		DroppedEnvelopesTotal,
		UnreadIncrementsTotal,
		FilteredMessagesTotal,
		HistoryAppendDuration,
		ActiveSessions,
		ActiveChannels,
	)
}

func RegisterNotificationMetrics() {
	prometheus.MustRegister(
		NotificationDispatchTotal,
		NotificationQueueSize,
	)
}

func RegisterBusMetrics() {
	prometheus.MustRegister(
		ArchivedEnvelopesTotal,
		DLQMessagesTotal,
		BusReconnectsTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func ObserveRelayDelivery(family string, duration time.Duration) {
	RelayDeliveryDuration.WithLabelValues(family).Observe(float64(duration.Milliseconds()))
}

func ObserveHistoryAppend(duration time.Duration, status string) {
	HistoryAppendDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func SetActiveSessions(count int) {
	ActiveSessions.Set(float64(count))
}

func SetActiveChannels(count int) {
	ActiveChannels.Set(float64(count))
}

func SetNotificationQueueSize(size int) {
	NotificationQueueSize.Set(float64(size))
}
