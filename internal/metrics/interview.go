// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus collectors for the interview platform.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// Setup pipeline metrics
	pipelineStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxhire_pipeline_step_duration_seconds",
		Help:    "Duration of each setup pipeline step",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"}) // step=upload|analyze|questions|create

	pipelineStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxhire_pipeline_step_failures_total",
		Help: "Setup pipeline step failures by reason",
	}, []string{"step", "reason"}) // reason=timeout|request|rejected

	pipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxhire_pipeline_runs_total",
		Help: "Completed setup pipeline runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	// Connection metrics
	connectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxhire_connect_attempts_total",
		Help: "Realtime connect attempts by outcome",
	}, []string{"outcome"}) // outcome=success|retryable|terminal

	connectRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxhire_connect_retries_total",
		Help: "Scheduled connect retries",
	})

	// Status reconciliation metrics
	reconcilePollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxhire_reconcile_polls_total",
		Help: "Status reconciliation polls by observed result",
	}, []string{"result"}) // result=live|completed|disconnected|error

	reconcileOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxhire_reconcile_outcome_total",
		Help: "Status reconciliation terminal outcomes",
	}, []string{"outcome"}) // outcome=completed|disconnected|exhausted

	// Report dispatch metrics
	reportDispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxhire_report_dispatch_total",
		Help: "Report email dispatch requests by outcome",
	}, []string{"outcome"}) // outcome=sent|rejected|transport_error

	// Server-side metrics
	sessionsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voxhire_sessions",
		Help: "Sessions currently stored, by status",
	}, []string{"status"})

	storeOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxhire_store_operations_total",
		Help: "Session store operations by backend and outcome",
	}, []string{"backend", "op", "outcome"})

	llmRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxhire_llm_requests_total",
		Help: "LLM requests by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=analysis|questions|report outcome=success|error|fallback

	llmRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxhire_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45},
	}, []string{"kind"})

	emailSendAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxhire_email_send_attempts_total",
		Help: "SMTP send attempts by outcome",
	}, []string{"outcome"}) // outcome=success|error

	gatewayRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxhire_gateway_rooms",
		Help: "Open realtime rooms",
	})

	gatewayParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxhire_gateway_participants",
		Help: "Connected realtime participants",
	})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxhire_http_request_duration_seconds",
		Help:    "API request duration by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

func ObservePipelineStep(step string, seconds float64) {
	pipelineStepDuration.WithLabelValues(step).Observe(seconds)
}

func IncPipelineStepFailure(step, reason string) {
	pipelineStepFailures.WithLabelValues(step, reason).Inc()
}

func IncPipelineRun(outcome string) { pipelineRunsTotal.WithLabelValues(outcome).Inc() }

func IncConnectAttempt(outcome string) { connectAttemptsTotal.WithLabelValues(outcome).Inc() }

func IncConnectRetry() { connectRetriesTotal.Inc() }

func IncReconcilePoll(result string) { reconcilePollsTotal.WithLabelValues(result).Inc() }

func IncReconcileOutcome(outcome string) { reconcileOutcomeTotal.WithLabelValues(outcome).Inc() }

func IncReportDispatch(outcome string) { reportDispatchTotal.WithLabelValues(outcome).Inc() }

func SetSessionsByStatus(status string, n int) {
	sessionsByStatus.WithLabelValues(status).Set(float64(n))
}

func IncStoreOperation(backend, op, outcome string) {
	storeOperationsTotal.WithLabelValues(backend, op, outcome).Inc()
}

func IncLLMRequest(kind, outcome string) { llmRequestsTotal.WithLabelValues(kind, outcome).Inc() }

func ObserveLLMRequest(kind string, seconds float64) {
	llmRequestDuration.WithLabelValues(kind).Observe(seconds)
}

func IncEmailSendAttempt(outcome string) { emailSendAttempts.WithLabelValues(outcome).Inc() }

func IncGatewayRooms()        { gatewayRooms.Inc() }
func DecGatewayRooms()        { gatewayRooms.Dec() }
func IncGatewayParticipants() { gatewayParticipants.Inc() }
func DecGatewayParticipants() { gatewayParticipants.Dec() }

// GetGatewayParticipants returns the current participant gauge value (for testing).
func GetGatewayParticipants() float64 {
	var m dto.Metric
	if err := gatewayParticipants.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func ObserveHTTPRequest(route, method, status string, seconds float64) {
	httpRequestDuration.WithLabelValues(route, method, status).Observe(seconds)
}
