// SPDX-License-Identifier: MIT

package interview

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxhire/voxhire/internal/backend"
	"github.com/voxhire/voxhire/internal/rtc"
)

// ConnectCause classifies a connection failure. The supervisor retries
// transient causes and stops immediately on the rest.
type ConnectCause string

const (
	// CausePermission: microphone access was denied. Not retryable.
	CausePermission ConnectCause = "permission"
	// CauseDevice: no usable capture device. Not retryable.
	CauseDevice ConnectCause = "device"
	// CauseMalformed: the session descriptor is unusable. Not retryable.
	CauseMalformed ConnectCause = "malformed"
	// CauseTimeout: a connect or publish race elapsed. Retryable.
	CauseTimeout ConnectCause = "timeout"
	// CauseTransport: a network-level failure. Retryable.
	CauseTransport ConnectCause = "transport"
	// CauseGeneric: everything else. Not retryable.
	CauseGeneric ConnectCause = "generic"
)

// Retryable reports whether another attempt is expected to help.
func (c ConnectCause) Retryable() bool {
	return c == CauseTimeout || c == CauseTransport
}

// Remediation is the user-facing guidance for a terminal failure of this
// cause. Transient causes get generic retry text, since the supervisor only
// surfaces them after the attempt budget is spent.
func (c ConnectCause) Remediation() string {
	switch c {
	case CausePermission:
		return "Microphone access was denied. Allow microphone access and start a new interview."
	case CauseDevice:
		return "No microphone was found. Connect a microphone and start a new interview."
	case CauseMalformed:
		return "The session credentials are invalid. Start a new interview to get fresh ones."
	case CauseTimeout:
		return "Connecting to the interview room timed out repeatedly. Check your network and try again."
	case CauseTransport:
		return "The interview room could not be reached. Check your network and try again."
	default:
		return "Connecting to the interview room failed. Try again."
	}
}

// ConnectError is the typed failure raised by the session connector and
// classified by the supervisor.
type ConnectError struct {
	Cause ConnectCause
	Step  string // probe | validate | connect | publish
	Err   error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect %s: %s: %v", e.Step, e.Cause, e.Err)
	}
	return fmt.Sprintf("connect %s: %s", e.Step, e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// connectFailure wraps err into a ConnectError for the given step,
// classifying the cause from the error chain.
func connectFailure(step string, err error) *ConnectError {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce
	}
	return &ConnectError{Cause: classifyCause(err), Step: step, Err: err}
}

func classifyCause(err error) ConnectCause {
	switch {
	case errors.Is(err, rtc.ErrPermissionDenied):
		return CausePermission
	case errors.Is(err, rtc.ErrDeviceNotFound):
		return CauseDevice
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, backend.ErrTimeout):
		return CauseTimeout
	case errors.Is(err, backend.ErrUnavailable):
		return CauseTransport
	default:
		return CauseGeneric
	}
}

// PipelineError reports which setup step failed and whether the step timed
// out. Timeouts get different retry guidance than server rejections, so the
// distinction must survive to the surfaced message.
type PipelineError struct {
	Step    string // upload | analyze | questions | create-session
	Timeout bool
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("pipeline %s: timed out", e.Step)
	}
	return fmt.Sprintf("pipeline %s: %v", e.Step, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// UserMessage renders the failure for the form view, keeping the
// server-provided text verbatim when there is one.
func (e *PipelineError) UserMessage() string {
	if e.Timeout {
		return fmt.Sprintf("The %s step timed out. Try again with smaller documents.", e.Step)
	}
	if msg := backend.RemoteMessage(e.Err); msg != "" {
		return fmt.Sprintf("The %s step failed: %s", e.Step, msg)
	}
	return fmt.Sprintf("The %s step failed: %v. Check your input and resubmit.", e.Step, e.Err)
}
