/*-------------------------------------------------------------------------
 *
 * prometheus.go
 *    Prometheus metrics for fernlabs-api
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/metrics/prometheus.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	/* Request metrics */
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fernlabs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fernlabs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	/* Workflow metrics */
	workflowRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fernlabs_workflow_runs_total",
			Help: "Total number of workflow runs by outcome",
		},
		[]string{"entry", "outcome"},
	)

	stageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fernlabs_workflow_stage_transitions_total",
			Help: "Total number of stage transitions",
		},
		[]string{"stage", "route"},
	)

	/* LLM metrics */
	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fernlabs_llm_calls_total",
			Help: "Total number of LLM calls",
		},
		[]string{"stage", "status"},
	)

	llmCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fernlabs_llm_call_duration_seconds",
			Help:    "LLM call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

/* RecordHTTPRequest records an HTTP request */
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

/* RecordWorkflowRun records the outcome of a workflow run */
func RecordWorkflowRun(entry, outcome string) {
	workflowRunsTotal.WithLabelValues(entry, outcome).Inc()
}

/* RecordStageTransition records a stage transition */
func RecordStageTransition(stage, route string) {
	stageTransitionsTotal.WithLabelValues(stage, route).Inc()
}

/* RecordLLMCall records an LLM call */
func RecordLLMCall(stage, status string, duration time.Duration) {
	llmCallsTotal.WithLabelValues(stage, status).Inc()
	llmCallDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

/* Handler returns the Prometheus scrape handler */
func Handler() http.Handler {
	return promhttp.Handler()
}
