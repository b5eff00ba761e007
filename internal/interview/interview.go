// SPDX-License-Identifier: MIT

// Package interview is the candidate-side session orchestrator. It drives
// the full interview lifecycle: form validation, the four-step setup
// pipeline, the supervised realtime connection, status reconciliation after
// the interviewer leaves, and report dispatch on completion.
//
// The package is built around one Controller goroutine that owns every
// piece of mutable state (connection state, retry budget, timer handles,
// the live session). All stimuli — user actions, room events, timer fires,
// poll results — arrive as events on one channel and are handled by a
// single dispatch switch, so transition logic lives in one place.
package interview

import (
	"context"
	"time"

	"github.com/voxhire/voxhire/internal/backend"
	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/types"
)

// Backend is the slice of the coordination API the orchestrator consumes.
// *backend.Client satisfies it; tests substitute a scripted fake.
type Backend interface {
	Upload(ctx context.Context, jd, resume backend.Document) (*backend.UploadResult, error)
	Analyze(ctx context.Context, jdText, resumeText string) (*backend.Analysis, error)
	GenerateQuestions(ctx context.Context, jdText, resumeText string, numQuestions int) ([]backend.Question, error)
	CreateSession(ctx context.Context, req backend.CreateSessionRequest) (*backend.SessionDescriptor, error)
	SessionStatus(ctx context.Context, id string) (types.SessionStatus, error)
	UpdateStatus(ctx context.Context, id string, status types.SessionStatus) error
	SendReport(ctx context.Context, id string) (string, error)
	DownloadReport(ctx context.Context, id string) ([]byte, error)
}

// SessionDialer opens a realtime room session. The production implementation
// wraps rtc.Dialer; tests use an in-package fake transport.
type SessionDialer interface {
	DialRoom(ctx context.Context, serverURL, roomName, token, identity string) (rtc.RoomSession, error)
}

// NoticeLevel grades user-facing messages.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarn
	NoticeError
)

// Outcome is the terminal result handed to the results view. Status is
// empty when reconciliation gave up without observing a terminal status.
type Outcome struct {
	SessionID string
	Status    types.SessionStatus
	Message   string
	Report    []byte
}

// Presenter receives everything the orchestrator wants the user to see.
// The core never prints; the CLI (or any other frontend) implements this.
type Presenter interface {
	// StateChanged reports every connection state transition.
	StateChanged(old, next types.ConnectionState)
	// Progress reports setup pipeline progress, monotonic within one run.
	Progress(percent int, label string)
	// Notice surfaces a user-facing message outside the pipeline flow.
	Notice(level NoticeLevel, message string)
	// Results transitions the frontend to the terminal results view.
	Results(Outcome)
}

// NopPresenter discards everything. Useful as an embedding default in tests.
type NopPresenter struct{}

func (NopPresenter) StateChanged(types.ConnectionState, types.ConnectionState) {}
func (NopPresenter) Progress(int, string)                                      {}
func (NopPresenter) Notice(NoticeLevel, string)                                {}
func (NopPresenter) Results(Outcome)                                           {}

// Fixed budgets. Timeouts may be shortened for tests via Timeouts; the
// attempt ceilings are part of the protocol and never change.
const (
	// MaxConnectAttempts bounds supervised connection attempts, the first
	// attempt included.
	MaxConnectAttempts = 3
	// MaxPollAttempts bounds status reconciliation polls.
	MaxPollAttempts = 30
)

// Timeouts collects every timing constant of the orchestrator in one place.
// Zero fields take the defaults; tests shorten them to keep runs fast.
type Timeouts struct {
	Upload        time.Duration // upload step ceiling
	Analyze       time.Duration // analyze step ceiling
	Questions     time.Duration // generate-questions step ceiling
	CreateSession time.Duration // create-session step ceiling

	Probe       time.Duration // microphone probe ceiling
	Connect     time.Duration // transport connect race
	Publish     time.Duration // audio publish race
	VerifyDelay time.Duration // settle delay before the advisory track check

	RetryBase    time.Duration // linear backoff base: delay = base × attempt
	PollInterval time.Duration // reconciler tick interval
	PollRequest  time.Duration // per-poll status fetch ceiling
	ResultsDelay time.Duration // pause between dispatch outcome and results view
}

// DefaultTimeouts returns the production timing constants.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Upload:        30 * time.Second,
		Analyze:       45 * time.Second,
		Questions:     45 * time.Second,
		CreateSession: 30 * time.Second,
		Probe:         10 * time.Second,
		Connect:       30 * time.Second,
		Publish:       15 * time.Second,
		VerifyDelay:   500 * time.Millisecond,
		RetryBase:     2 * time.Second,
		PollInterval:  time.Second,
		PollRequest:   5 * time.Second,
		ResultsDelay:  1500 * time.Millisecond,
	}
}

// withDefaults fills zero fields from DefaultTimeouts.
func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	set := func(dst *time.Duration, def time.Duration) {
		if *dst <= 0 {
			*dst = def
		}
	}
	set(&t.Upload, d.Upload)
	set(&t.Analyze, d.Analyze)
	set(&t.Questions, d.Questions)
	set(&t.CreateSession, d.CreateSession)
	set(&t.Probe, d.Probe)
	set(&t.Connect, d.Connect)
	set(&t.Publish, d.Publish)
	set(&t.VerifyDelay, d.VerifyDelay)
	set(&t.RetryBase, d.RetryBase)
	set(&t.PollInterval, d.PollInterval)
	set(&t.PollRequest, d.PollRequest)
	set(&t.ResultsDelay, d.ResultsDelay)
	return t
}
