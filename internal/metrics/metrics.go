// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Relay Connection Metrics
	RelayConnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_connects_total",
			Help: "Total number of relay connection attempts",
		},
		[]string{"relay", "result"}, // result: "success", "failure"
	)

	RelaySessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_sessions_active",
			Help: "Current number of open relay sessions",
		},
		[]string{"relay", "role"}, // role: "primary", "secondary"
	)

	RelayReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_reconnects_total",
			Help: "Total number of relay session restarts after a failure",
		},
		[]string{"relay", "role"},
	)

	RelayMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_received_total",
			Help: "Total number of frames received from relays by label",
		},
		[]string{"relay", "label"},
	)

	// Ingestion Metrics
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_received_total",
			Help: "Total number of events received from relays",
		},
		[]string{"relay"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Total number of received events not stored",
		},
		[]string{"reason"}, // reason: "unsupported_kind", "missing_reference", "store_error"
	)

	EventsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_stored_total",
			Help: "Total number of events newly persisted",
		},
		[]string{"category"},
	)

	EventsDuplicate = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_duplicate_total",
			Help: "Total number of events already present in the store",
		},
		[]string{"category"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_event_duration_seconds",
			Help:    "Time to classify and persist one event",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
	)

	// Expansion Metrics
	ExpansionRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expansion_requested_total",
			Help: "Total number of reference subscriptions requested",
		},
		[]string{"relay"},
	)

	ExpansionDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expansion_deduplicated_total",
			Help: "Total number of reference subscriptions skipped as already open",
		},
		[]string{"relay"},
	)

	ExpansionRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expansion_rejected_total",
			Help: "Total number of reference subscriptions not started",
		},
		[]string{"relay", "reason"}, // reason: "queue_full", "shutdown", "relay_stopped"
	)

	ExpansionSpillover = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expansion_spillover_total",
			Help: "Total number of reference filters sent on the primary connection because the session cap was reached",
		},
		[]string{"relay"},
	)

	ExpansionQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "expansion_queue_depth",
			Help: "Pending reference subscriptions per relay",
		},
		[]string{"relay"},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of dedup store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of dedup store errors",
		},
		[]string{"backend", "operation"},
	)

	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_conflict_retries_total",
			Help: "Total number of write retries after a transaction conflict",
		},
		[]string{"backend"},
	)

	// Event Bus Metrics
	RecordsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_records_published_total",
			Help: "Total number of stored records published to the event bus",
		},
		[]string{"result"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"cache_type"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket stream clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordStoreOperation records the latency and outcome of a store call
func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordIngest records the outcome of one persisted event
func RecordIngest(category string, inserted bool, duration time.Duration) {
	IngestDuration.Observe(duration.Seconds())
	if inserted {
		EventsStored.WithLabelValues(category).Inc()
	} else {
		EventsDuplicate.WithLabelValues(category).Inc()
	}
}

// TrackSession adjusts the open session gauge for relay and role
func TrackSession(relay, role string, open bool) {
	if open {
		RelaySessionsActive.WithLabelValues(relay, role).Inc()
	} else {
		RelaySessionsActive.WithLabelValues(relay, role).Dec()
	}
}
