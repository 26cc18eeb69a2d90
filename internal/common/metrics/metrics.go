// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_decisions_total",
			Help: "Total routing decisions by primary operation and path",
		},
		[]string{"operation", "path"},
	)

	RoutingFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_failures_total",
			Help: "Total routing failures by stage and error code",
		},
		[]string{"stage", "error_code"},
	)

	RoutingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "router_stage_duration_seconds",
			Help: "Duration of each routing stage in seconds",
		},
		[]string{"stage"},
	)

	EvidenceProbeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_evidence_probe_failures_total",
			Help: "Evidence probes that timed out or errored and fell back to defaults",
		},
		[]string{"probe"},
	)

	GateCacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_gate_cache_events_total",
			Help: "Relevance gate cache hits and misses",
		},
		[]string{"event"},
	)

	VocabularyRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_vocabulary_refreshes_total",
			Help: "Vocabulary cache refreshes by outcome",
		},
		[]string{"outcome"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "router_active_requests",
			Help: "Number of in-flight routing requests",
		},
		[]string{"endpoint"},
	)
)
