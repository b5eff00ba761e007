// SPDX-License-Identifier: MIT
package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(metric))
	return metric.GetCounter().GetValue()
}

func getGaugeVecValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(metric))
	return metric.GetGauge().GetValue()
}

func TestPromhttpExposure(t *testing.T) {
	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestConnectAttemptCounters(t *testing.T) {
	before := getCounterVecValue(t, connectAttemptsTotal, "retryable")
	IncConnectAttempt("retryable")
	IncConnectAttempt("retryable")
	after := getCounterVecValue(t, connectAttemptsTotal, "retryable")
	assert.Equal(t, before+2, after)
}

func TestPipelineStepFailureCounters(t *testing.T) {
	before := getCounterVecValue(t, pipelineStepFailures, "analyze", "timeout")
	IncPipelineStepFailure("analyze", "timeout")
	after := getCounterVecValue(t, pipelineStepFailures, "analyze", "timeout")
	assert.Equal(t, before+1, after)
}

func TestSessionsByStatusGauge(t *testing.T) {
	SetSessionsByStatus("completed", 7)
	assert.Equal(t, 7.0, getGaugeVecValue(t, sessionsByStatus, "completed"))

	SetSessionsByStatus("completed", 3)
	assert.Equal(t, 3.0, getGaugeVecValue(t, sessionsByStatus, "completed"))
}

func TestGatewayParticipantGauge(t *testing.T) {
	base := GetGatewayParticipants()
	IncGatewayParticipants()
	IncGatewayParticipants()
	DecGatewayParticipants()
	assert.Equal(t, base+1, GetGatewayParticipants())
	DecGatewayParticipants()
}

func TestReconcileCounters(t *testing.T) {
	before := getCounterVecValue(t, reconcilePollsTotal, "live")
	IncReconcilePoll("live")
	assert.Equal(t, before+1, getCounterVecValue(t, reconcilePollsTotal, "live"))

	beforeOut := getCounterVecValue(t, reconcileOutcomeTotal, "exhausted")
	IncReconcileOutcome("exhausted")
	assert.Equal(t, beforeOut+1, getCounterVecValue(t, reconcileOutcomeTotal, "exhausted"))
}
