// SPDX-License-Identifier: MIT
package types

import (
	"encoding/json"
	"fmt"
)

// ConnectionState represents the client-local state of the realtime connection.
//
// It is owned exclusively by the connection supervisor and mutated only on
// room events or explicit user actions.
type ConnectionState string

// Connection state constants define all possible states of the realtime connection.
const (
	// ConnIdle indicates no connection activity. Initial and reset state.
	ConnIdle ConnectionState = "idle"

	// ConnConnecting indicates a connect attempt (or retry) is in flight.
	ConnConnecting ConnectionState = "connecting"

	// ConnConnected indicates the session is live with the microphone published.
	ConnConnected ConnectionState = "connected"

	// ConnReconnecting indicates the transport is recovering the live session.
	ConnReconnecting ConnectionState = "reconnecting"

	// ConnDisconnected indicates the live session ended.
	ConnDisconnected ConnectionState = "disconnected"

	// ConnError indicates connecting failed terminally.
	ConnError ConnectionState = "error"
)

// String implements fmt.Stringer.
func (s ConnectionState) String() string {
	return string(s)
}

// IsValid checks whether the connection state is valid.
func (s ConnectionState) IsValid() bool {
	switch s {
	case ConnIdle, ConnConnecting, ConnConnected, ConnReconnecting, ConnDisconnected, ConnError:
		return true
	default:
		return false
	}
}

// IsSettled checks whether the state is one no further transport activity is
// expected from. A settled state only leaves via an explicit user action.
func (s ConnectionState) IsSettled() bool {
	switch s {
	case ConnIdle, ConnDisconnected, ConnError:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks whether this state can transition to the target state.
//
// Valid transitions:
//   - Idle → Connecting
//   - Connecting → Connecting (retry), Connected, Disconnected, Error
//   - Connected → Reconnecting, Disconnected
//   - Reconnecting → Connected, Disconnected
//   - any state → Idle ("start new interview" reset)
func (s ConnectionState) CanTransitionTo(target ConnectionState) bool {
	if target == ConnIdle {
		return true
	}

	switch s {
	case ConnIdle:
		return target == ConnConnecting
	case ConnConnecting:
		return target == ConnConnecting || target == ConnConnected ||
			target == ConnDisconnected || target == ConnError
	case ConnConnected:
		return target == ConnReconnecting || target == ConnDisconnected
	case ConnReconnecting:
		return target == ConnConnected || target == ConnDisconnected
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler for ConnectionState.
func (s ConnectionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler for ConnectionState.
func (s *ConnectionState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	state := ConnectionState(str)
	if !state.IsValid() {
		return fmt.Errorf("invalid connection state: %q", str)
	}

	*s = state
	return nil
}

// AllConnectionStates returns all defined connection states.
func AllConnectionStates() []ConnectionState {
	return []ConnectionState{
		ConnIdle,
		ConnConnecting,
		ConnConnected,
		ConnReconnecting,
		ConnDisconnected,
		ConnError,
	}
}
