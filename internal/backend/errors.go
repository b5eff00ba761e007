// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrTimeout      = errors.New("backend: request timed out")
	ErrUnavailable  = errors.New("backend: host unreachable or transport failure")
	ErrNotFound     = errors.New("backend: resource not found")
	ErrUnauthorized = errors.New("backend: authentication rejected")
	ErrRemote       = errors.New("backend: request rejected")
	ErrBadResponse  = errors.New("backend: invalid response format or malformed data")
)

// APIError wraps a sentinel with the operation, HTTP status, and the
// server-provided message so callers can show the exact failure.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Message   string
	Err       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("backend: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

// RemoteMessage extracts the server-provided failure text from err, or ""
// when err carries none. Pipeline failures surface this verbatim.
func RemoteMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
