// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for voxhire.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Session attributes
	SessionIDKey     = "session.id"
	SessionStatusKey = "session.status"
	SessionRoomKey   = "session.room"

	// Pipeline attributes
	PipelineStepKey     = "pipeline.step"
	PipelineDurationKey = "pipeline.duration_ms"

	// Connection attributes
	ConnectAttemptKey = "connect.attempt"
	ConnectCauseKey   = "connect.cause"

	// LLM attributes
	LLMModelKey  = "llm.model"
	LLMKindKey   = "llm.kind"
	LLMTokensKey = "llm.tokens"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes creates session-related span attributes.
func SessionAttributes(id, status, room string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if id != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, id))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(SessionStatusKey, status))
	}
	if room != "" {
		attrs = append(attrs, attribute.String(SessionRoomKey, room))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errType),
	}
}
