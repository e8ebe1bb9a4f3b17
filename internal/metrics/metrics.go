// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmcortex_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmcortex_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 30, 120, 600},
		},
		[]string{"method", "route"},
	)

	ClassificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmcortex_classifications_total",
			Help: "Request classifications by path (explicit, slow) and resulting intent",
		},
		[]string{"path", "intent"},
	)

	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmcortex_dispatch_total",
			Help: "Dispatches by intent and terminal state",
		},
		[]string{"intent", "state"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmcortex_dispatch_duration_seconds",
			Help:    "Time from classification to terminal state",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"intent"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmcortex_analysis_duration_seconds",
			Help:    "Analyzer invocation latency by mode and outcome",
			Buckets: []float64{1, 5, 15, 60, 180, 600, 1800},
		},
		[]string{"mode", "outcome"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmcortex_llm_calls_total",
			Help: "Completion calls by provider, model and outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	LLMLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmcortex_llm_latency_seconds",
			Help:    "Completion call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmcortex_llm_tokens_total",
			Help: "Tokens consumed by direction (prompt, completion)",
		},
		[]string{"provider", "direction"},
	)

	DiscoveryEnqueues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmcortex_discovery_enqueues_total",
			Help: "Discovery enqueue results (started, already_running, skipped)",
		},
		[]string{"status"},
	)

	DiscoveryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmcortex_discovery_runs_total",
			Help: "Finished discovery runs by outcome (completed, failed, conflict)",
		},
		[]string{"outcome"},
	)

	DiscoveryRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pmcortex_discovery_running",
			Help: "Number of discovery runs in progress",
		},
	)

	FeaturesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmcortex_features_persisted_total",
			Help: "Feature records written by discovery",
		},
	)

	RepoSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmcortex_repo_syncs_total",
			Help: "Repository clone/pull operations by outcome",
		},
		[]string{"outcome"},
	)
)

// Outcome returns "ok" for a nil error and "error" otherwise.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
