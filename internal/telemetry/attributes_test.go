// SPDX-License-Identifier: MIT
package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, want string) {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			if a.Value.AsString() != want {
				t.Errorf("attribute %s = %q, want %q", key, a.Value.AsString(), want)
			}
			return
		}
	}
	t.Errorf("attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, want int64) {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			if a.Value.AsInt64() != want {
				t.Errorf("attribute %s = %d, want %d", key, a.Value.AsInt64(), want)
			}
			return
		}
	}
	t.Errorf("attribute %s not found", key)
}

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("GET", "/api/session/{id}", "http://localhost:8085/api/session/abc", 200)

	if len(attrs) != 4 {
		t.Fatalf("Expected 4 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, HTTPMethodKey, "GET")
	verifyAttribute(t, attrs, HTTPRouteKey, "/api/session/{id}")
	verifyAttribute(t, attrs, HTTPURLKey, "http://localhost:8085/api/session/abc")
	verifyIntAttribute(t, attrs, HTTPStatusCodeKey, 200)
}

func TestSessionAttributes(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		status  string
		room    string
		wantLen int
	}{
		{
			name:    "all fields",
			id:      "sess-1",
			status:  "interviewing",
			room:    "interview_ab12cd34",
			wantLen: 3,
		},
		{
			name:    "only id",
			id:      "sess-1",
			wantLen: 1,
		},
		{
			name:    "empty",
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := SessionAttributes(tt.id, tt.status, tt.room)
			if len(attrs) != tt.wantLen {
				t.Errorf("SessionAttributes() returned %d attrs, want %d", len(attrs), tt.wantLen)
			}
		})
	}
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes("timeout")
	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}
	verifyAttribute(t, attrs, ErrorTypeKey, "timeout")
}
