package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Service metrics for production monitoring
var (
	// Webhook pipeline metrics
	WebhooksReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kubemedic_webhooks_received_total",
			Help: "Total number of webhooks received",
		},
	)

	WebhooksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubemedic_webhooks_processed_total",
			Help: "Total number of webhook investigations by outcome",
		},
		[]string{"status"}, // status: success/failed/skipped
	)

	WebhookRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kubemedic_webhook_retries_total",
			Help: "Total number of webhook investigation retry attempts",
		},
	)

	DeadLetterQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kubemedic_dead_letter_queue_size",
			Help: "Current number of entries in the dead-letter queue",
		},
	)

	// Agent metrics
	AgentInvocationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kubemedic_agent_invocations_total",
			Help: "Total number of supervisor agent invocations",
		},
	)

	RecursionLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kubemedic_agent_recursion_limit_hits_total",
			Help: "Total number of invocations stopped by the recursion limit",
		},
	)

	InvestigationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kubemedic_investigation_duration_seconds",
			Help:    "Investigation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
		},
		[]string{"path"}, // path: webhook/sync/query
	)

	DelegationCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubemedic_delegation_calls_total",
			Help: "Total number of supervisor-to-specialist delegation calls",
		},
		[]string{"specialist", "status"},
	)

	// HTTP front-end metrics
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubemedic_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kubemedic_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)
)
