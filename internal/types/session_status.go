// SPDX-License-Identifier: MIT

// Package types provides type-safe enumerations and constants for voxhire.
//
// This package centralizes all typed constants, enums, and state types
// to prevent string-based bugs and improve code maintainability.
package types

import (
	"encoding/json"
	"fmt"
)

// SessionStatus represents the backend-owned state of an interview session.
//
// The backend is the source of truth for this value; clients only read it.
// Progression is monotonic toward a terminal state and never reverts.
type SessionStatus string

// Session status constants define all possible states of an interview session.
const (
	// StatusCreated indicates the session is persisted but the room is not live.
	StatusCreated SessionStatus = "created"

	// StatusReady indicates the room and credentials exist and the candidate may join.
	StatusReady SessionStatus = "ready"

	// StatusInterviewing indicates the interview is live. The wire formats
	// "active" and "in-progress" are accepted as aliases of this state.
	StatusInterviewing SessionStatus = "interviewing"

	// StatusCompleted indicates the interviewer finished the full question list.
	StatusCompleted SessionStatus = "completed"

	// StatusDisconnected indicates the session ended without completing.
	StatusDisconnected SessionStatus = "disconnected"

	// StatusFailed indicates the session terminated with an error. The wire
	// format "error" is accepted as an alias of this state.
	StatusFailed SessionStatus = "failed"
)

// statusAliases maps wire-level alias values onto canonical statuses.
// The backend historically reported live sessions under several names.
var statusAliases = map[string]SessionStatus{
	"active":      StatusInterviewing,
	"in-progress": StatusInterviewing,
	"in_progress": StatusInterviewing,
	"error":       StatusFailed,
}

// String returns the string representation of the session status.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid checks whether the session status is one of the canonical constants.
func (s SessionStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusReady, StatusInterviewing, StatusCompleted, StatusDisconnected, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal checks whether the status represents a final state.
//
// Terminal states include: Completed, Disconnected, Failed.
// A session in a terminal state will not transition to another state.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusDisconnected, StatusFailed:
		return true
	default:
		return false
	}
}

// IsLive checks whether the status means the interview is currently running.
func (s SessionStatus) IsLive() bool {
	return s == StatusInterviewing
}

// CanTransitionTo checks whether this status can transition to the target status.
//
// Valid transitions:
//   - Created → Ready, Interviewing, Disconnected, Failed
//   - Ready → Interviewing, Disconnected, Failed
//   - Interviewing → Completed, Disconnected, Failed
//   - Terminal states cannot transition
//
// Created → Interviewing is permitted because the interviewer may join and
// report a live session before the readiness update lands.
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	if s.IsTerminal() {
		return false
	}

	switch s {
	case StatusCreated:
		return target == StatusReady || target == StatusInterviewing ||
			target == StatusDisconnected || target == StatusFailed
	case StatusReady:
		return target == StatusInterviewing || target == StatusDisconnected || target == StatusFailed
	case StatusInterviewing:
		return target == StatusCompleted || target == StatusDisconnected || target == StatusFailed
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler for SessionStatus.
func (s SessionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler for SessionStatus.
// Alias wire values are normalized to their canonical status.
func (s *SessionStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseSessionStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// ParseSessionStatus parses a wire string into a canonical SessionStatus,
// normalizing the historical alias values, and returns an error if invalid.
func ParseSessionStatus(s string) (SessionStatus, error) {
	if canonical, ok := statusAliases[s]; ok {
		return canonical, nil
	}
	status := SessionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid session status: %q (valid: created, ready, interviewing, completed, disconnected, failed)", s)
	}
	return status, nil
}

// AllSessionStatuses returns all canonical session statuses.
func AllSessionStatuses() []SessionStatus {
	return []SessionStatus{
		StatusCreated,
		StatusReady,
		StatusInterviewing,
		StatusCompleted,
		StatusDisconnected,
		StatusFailed,
	}
}
