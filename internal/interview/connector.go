// SPDX-License-Identifier: MIT

package interview

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxhire/voxhire/internal/backend"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/types"
)

// Connector turns a session descriptor into a live room session with the
// local microphone published. Each step is independently guarded so its
// failures classify distinctly: probe failures are permission/device
// errors, validation failures are malformed input, and the connect and
// publish races produce timeouts.
type Connector struct {
	backend  Backend
	dialer   SessionDialer
	probe    rtc.MicProbe
	clock    Clock
	timeouts Timeouts
	logger   zerolog.Logger
}

// NewConnector builds a session connector. probe may be nil when the host
// environment has no separate capture probe.
func NewConnector(b Backend, d SessionDialer, probe rtc.MicProbe, clock Clock, t Timeouts) *Connector {
	if clock == nil {
		clock = RealClock()
	}
	return &Connector{
		backend:  b,
		dialer:   d,
		probe:    probe,
		clock:    clock,
		timeouts: t.withDefaults(),
		logger:   log.WithComponent("connector"),
	}
}

// Connect performs probe → validate → connect → publish → verify → notify.
// Failures in the first four steps return a *ConnectError; verification and
// the backend notification are best-effort and never fail the connect.
func (c *Connector) Connect(ctx context.Context, desc *backend.SessionDescriptor) (rtc.RoomSession, error) {
	if err := c.probeMicrophone(ctx); err != nil {
		return nil, err
	}
	if err := validateDescriptor(desc); err != nil {
		return nil, err
	}

	sess, err := c.dialRoom(ctx, desc)
	if err != nil {
		return nil, err
	}

	if err := c.publishAudio(ctx, sess); err != nil {
		_ = sess.Close()
		return nil, err
	}

	c.verifyAudio(ctx, desc.SessionID, sess)
	c.notifyLive(desc.SessionID)
	return sess, nil
}

// probeMicrophone runs the dedicated capture probe so permission and
// hardware failures surface before any network I/O.
func (c *Connector) probeMicrophone(ctx context.Context) error {
	if c.probe == nil {
		return nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, c.timeouts.Probe)
	defer cancel()

	if err := c.probe.Probe(probeCtx); err != nil {
		return connectFailure("probe", err)
	}
	return nil
}

// validateDescriptor fails fast on unusable input before any network I/O.
func validateDescriptor(desc *backend.SessionDescriptor) error {
	if desc == nil {
		return &ConnectError{Cause: CauseMalformed, Step: "validate", Err: errors.New("no session descriptor")}
	}
	if strings.TrimSpace(desc.Token) == "" {
		return &ConnectError{Cause: CauseMalformed, Step: "validate", Err: errors.New("empty connection token")}
	}
	u, err := url.Parse(desc.ServerURL)
	if err != nil {
		return &ConnectError{Cause: CauseMalformed, Step: "validate", Err: fmt.Errorf("transport URL: %w", err)}
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return &ConnectError{Cause: CauseMalformed, Step: "validate", Err: fmt.Errorf("transport URL scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &ConnectError{Cause: CauseMalformed, Step: "validate", Err: errors.New("transport URL has no host")}
	}
	return nil
}

type dialOutcome struct {
	sess rtc.RoomSession
	err  error
}

// dialRoom races the transport connect against the connect timeout.
// Whichever settles first wins; a session that arrives after the timeout
// is closed and discarded.
func (c *Connector) dialRoom(ctx context.Context, desc *backend.SessionDescriptor) (rtc.RoomSession, error) {
	dialCtx, cancel := context.WithCancel(ctx)

	results := make(chan dialOutcome, 1)
	go func() {
		sess, err := c.dialer.DialRoom(dialCtx, desc.ServerURL, desc.RoomName, desc.Token, rtc.IdentityCandidate)
		results <- dialOutcome{sess: sess, err: err}
	}()

	timedOut := make(chan struct{})
	timer := c.clock.AfterFunc(c.timeouts.Connect, func() { close(timedOut) })
	defer timer.Stop()

	select {
	case out := <-results:
		cancel()
		if out.err != nil {
			return nil, c.classifyDial(out.err)
		}
		return out.sess, nil
	case <-timedOut:
		cancel()
		go discardLate(results)
		return nil, &ConnectError{Cause: CauseTimeout, Step: "connect", Err: context.DeadlineExceeded}
	case <-ctx.Done():
		cancel()
		go discardLate(results)
		return nil, connectFailure("connect", ctx.Err())
	}
}

// discardLate drains the loser of a connect race and releases any session
// it eventually produced.
func discardLate(results <-chan dialOutcome) {
	if out := <-results; out.sess != nil {
		_ = out.sess.Close()
	}
}

func (c *Connector) classifyDial(err error) *ConnectError {
	if errors.Is(err, rtc.ErrRejected) {
		// The gateway refused the join token: retrying cannot help.
		return &ConnectError{Cause: CauseGeneric, Step: "connect", Err: err}
	}
	cause := classifyCause(err)
	if cause == CauseGeneric {
		// Dial failures without a more specific classification are
		// network-level and worth retrying.
		cause = CauseTransport
	}
	return &ConnectError{Cause: cause, Step: "connect", Err: err}
}

// publishAudio races the audio publish against its own timeout.
func (c *Connector) publishAudio(ctx context.Context, sess rtc.RoomSession) error {
	pubCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 1)
	go func() { errs <- sess.PublishAudio(pubCtx) }()

	timedOut := make(chan struct{})
	timer := c.clock.AfterFunc(c.timeouts.Publish, func() { close(timedOut) })
	defer timer.Stop()

	select {
	case err := <-errs:
		if err != nil {
			return connectFailure("publish", err)
		}
		return nil
	case <-timedOut:
		cancel()
		return &ConnectError{Cause: CauseTimeout, Step: "publish", Err: context.DeadlineExceeded}
	case <-ctx.Done():
		return connectFailure("publish", ctx.Err())
	}
}

// verifyAudio waits a short settle delay and checks the local track state.
// Advisory only: a microphone that negotiated but reports inactive is
// logged, never fatal, because aborting here would kill interviews that
// are in fact audio-functional.
func (c *Connector) verifyAudio(ctx context.Context, sessionID string, sess rtc.RoomSession) {
	settled := make(chan struct{})
	timer := c.clock.AfterFunc(c.timeouts.VerifyDelay, func() { close(settled) })
	defer timer.Stop()

	select {
	case <-settled:
	case <-ctx.Done():
		return
	}

	if !sess.LocalAudioActive() {
		c.logger.Warn().
			Str(log.FieldEvent, "connect.audio_unverified").
			Str(log.FieldSessionID, sessionID).
			Msg("local audio track not confirmed after publish; continuing")
	}
}

// notifyLive reports the in-progress transition to the backend. Best-effort:
// a failure is logged and never aborts the live session.
func (c *Connector) notifyLive(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.backend.UpdateStatus(ctx, sessionID, types.StatusInterviewing); err != nil {
		c.logger.Warn().Err(err).
			Str(log.FieldEvent, "connect.notify_failed").
			Str(log.FieldSessionID, sessionID).
			Msg("backend status notification failed; session stays live")
	}
}
