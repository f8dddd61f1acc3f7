package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Control-plane metrics, registered on the default registry and served
// from the /metrics endpoint of both the hub and the edge local API.
var (
	// CommandsSubmitted counts dispatcher submits by kind and outcome.
	// outcome: accepted / reused / invalid / not_found
	CommandsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_commands_submitted_total",
			Help: "Total command submissions by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// CommandsResolved counts lane entries reaching a terminal status.
	CommandsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_commands_resolved_total",
			Help: "Total commands resolved by kind and terminal status.",
		},
		[]string{"kind", "status"},
	)

	// AckLatency observes submit-to-ack latency per kind.
	AckLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pitwall_command_ack_latency_seconds",
			Help:    "Latency between command submit and acknowledgment.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// HeartbeatsReceived counts accepted heartbeats per event.
	HeartbeatsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_heartbeats_received_total",
			Help: "Total heartbeats accepted by event.",
		},
		[]string{"event"},
	)

	// AuthRejections counts credential failures on the ack and heartbeat paths.
	AuthRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_auth_rejections_total",
			Help: "Total rejected credentials by surface (ack, heartbeat).",
		},
		[]string{"surface"},
	)

	// EdgeCommandsExecuted counts edge executor outcomes.
	// outcome: success / failed / rate_limited / invalid
	EdgeCommandsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_edge_commands_executed_total",
			Help: "Total edge command executions by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// PresenceCycles counts presence-loop iterations by result.
	// result: reported / not_configured / error
	PresenceCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_presence_cycles_total",
			Help: "Total presence loop iterations by result.",
		},
		[]string{"result"},
	)
)
