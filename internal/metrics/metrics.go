// Package metrics declares the Prometheus metrics for the signaling server,
// kept close to the engine package to avoid coupling between packages.
//
// Naming convention: namespace_subsystem_name
//   - namespace: portalbot (application-level grouping)
//   - subsystem: websocket, space, control (feature-level grouping)
//   - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
//   - Gauge: current state (connections, spaces, participants, queue depth)
//   - Counter: cumulative events (messages processed, errors)
//   - Histogram: latency distributions (processing time)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the current number of live client connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "portalbot",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveSpaces tracks the current number of non-empty spaces.
	ActiveSpaces = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "portalbot",
		Subsystem: "space",
		Name:      "spaces_active",
		Help:      "Current number of active spaces",
	})

	// SpaceParticipants tracks membership count per space.
	SpaceParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "portalbot",
		Subsystem: "space",
		Name:      "participants_count",
		Help:      "Number of participants in each active space",
	}, []string{"space_id"})

	// WebsocketEvents tracks the total number of dispatched message types.
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portalbot",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// MessageProcessingDuration tracks time spent inside the dispatch loop per event type.
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portalbot",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing WebSocket messages",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"event_type"})

	// ControlGrants counts control-lease grants, keyed by whether the grant was immediate or queued.
	ControlGrants = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portalbot",
		Subsystem: "control",
		Name:      "grants_total",
		Help:      "Total control lease grants",
	}, []string{"kind"})

	// ControlQueueDepth tracks the current FIFO length per space.
	ControlQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "portalbot",
		Subsystem: "control",
		Name:      "queue_depth",
		Help:      "Current control queue length for a space",
	}, []string{"space_id"})

	// RateLimitExceeded tracks requests rejected by the connect-rate limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portalbot",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of connection attempts that exceeded the rate limit",
	}, []string{"endpoint"})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
