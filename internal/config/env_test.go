// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		setEnv   bool
		def      string
		want     string
	}{
		{"env set", "hello", true, "fallback", "hello"},
		{"env missing", "", false, "fallback", "fallback"},
		{"env empty", "", true, "fallback", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "VOXHIRE_TEST_STRING"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseString(key, tt.def); got != tt.want {
				t.Errorf("ParseString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		setEnv   bool
		def      int
		want     int
	}{
		{"valid int", "42", true, 7, 42},
		{"invalid int", "forty-two", true, 7, 7},
		{"empty", "", true, 7, 7},
		{"missing", "", false, 7, 7},
		{"negative", "-3", true, 7, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "VOXHIRE_TEST_INT"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseInt(key, tt.def); got != tt.want {
				t.Errorf("ParseInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		setEnv   bool
		def      time.Duration
		want     time.Duration
	}{
		{"valid duration", "5s", true, time.Second, 5 * time.Second},
		{"valid ms", "250ms", true, time.Second, 250 * time.Millisecond},
		{"invalid", "fast", true, time.Second, time.Second},
		{"missing", "", false, 2 * time.Minute, 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "VOXHIRE_TEST_DURATION"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseDuration(key, tt.def); got != tt.want {
				t.Errorf("ParseDuration() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		setEnv   bool
		def      bool
		want     bool
	}{
		{"true", "true", true, false, true},
		{"one", "1", true, false, true},
		{"yes", "YES", true, false, true},
		{"false", "false", true, true, false},
		{"zero", "0", true, true, false},
		{"no", "no", true, true, false},
		{"invalid", "maybe", true, true, true},
		{"missing", "", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "VOXHIRE_TEST_BOOL"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseBool(key, tt.def); got != tt.want {
				t.Errorf("ParseBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		setEnv   bool
		def      float64
		want     float64
	}{
		{"valid float", "0.25", true, 1.0, 0.25},
		{"invalid", "a quarter", true, 1.0, 1.0},
		{"missing", "", false, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "VOXHIRE_TEST_FLOAT"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseFloat(key, tt.def); got != tt.want {
				t.Errorf("ParseFloat() = %g, want %g", got, tt.want)
			}
		})
	}
}
