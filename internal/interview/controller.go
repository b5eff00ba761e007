// SPDX-License-Identifier: MIT

package interview

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxhire/voxhire/internal/backend"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/metrics"
	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/types"
)

// ctlEvent is the single typed event union the controller dispatches on.
// Every stimulus — user command, pipeline result, connect attempt outcome,
// room event, timer fire, poll result — is one of these.
type ctlEvent interface{ ctlEvent() }

type evSubmit struct {
	form FormInput
}
type evConnect struct {
	desc *backend.SessionDescriptor
}
type evDisconnect struct{}
type evReset struct {
	done chan struct{}
}
type evPipelineDone struct {
	gen  uint64
	desc *backend.SessionDescriptor
	err  error
}
type evConnectResult struct {
	gen     uint64
	attempt int
	sess    rtc.RoomSession
	err     error
}
type evRetryDue struct {
	gen uint64
}
type evRoom struct {
	gen   uint64
	event rtc.Event
}
type evRoomClosed struct {
	gen uint64
}
type evPollDue struct {
	gen uint64
}
type evPollResult struct {
	gen    uint64
	status types.SessionStatus
	err    error
}
type evDispatchDone struct {
	gen     uint64
	message string
	err     error
}
type evResultsDue struct {
	gen uint64
}
type evReportFetched struct {
	gen     uint64
	outcome Outcome
}

func (evSubmit) ctlEvent()        {}
func (evConnect) ctlEvent()       {}
func (evDisconnect) ctlEvent()    {}
func (evReset) ctlEvent()         {}
func (evPipelineDone) ctlEvent()  {}
func (evConnectResult) ctlEvent() {}
func (evRetryDue) ctlEvent()      {}
func (evRoom) ctlEvent()          {}
func (evRoomClosed) ctlEvent()    {}
func (evPollDue) ctlEvent()       {}
func (evPollResult) ctlEvent()    {}
func (evDispatchDone) ctlEvent()  {}
func (evResultsDue) ctlEvent()    {}
func (evReportFetched) ctlEvent() {}

// ControllerOptions wires the controller's collaborators.
type ControllerOptions struct {
	Backend   Backend
	Dialer    SessionDialer
	Probe     rtc.MicProbe
	Presenter Presenter
	Clock     Clock
	Timeouts  Timeouts
	// QuestionCount is forwarded to the setup pipeline. 0 means default.
	QuestionCount int
}

// Controller owns the whole client-side interview lifecycle. All mutable
// state — connection state, retry budget, descriptor, timers, the live
// session — belongs to the Run loop goroutine; nothing else mutates it.
// Public methods post events and return.
type Controller struct {
	backend   Backend
	pipeline  *Pipeline
	connector *Connector
	presenter Presenter
	clock     Clock
	timeouts  Timeouts
	logger    zerolog.Logger

	events  chan ctlEvent
	stopped chan struct{}

	stateMirror    atomic.Value // types.ConnectionState, read-side mirror
	attemptsMirror atomic.Int32 // RetryBudget attempts, read-side mirror

	// Everything below is owned by the Run loop.
	gen           uint64
	state         types.ConnectionState
	attempts      int
	desc          *backend.SessionDescriptor
	sess          rtc.RoomSession
	connectCancel context.CancelFunc

	retryTimer   Timer
	pollTimer    Timer
	resultsTimer Timer

	reconciling     bool
	polls           int
	liveNoticeSent  bool
	completionFired bool
}

// NewController builds a controller. Run must be started before any public
// method is called.
func NewController(opts ControllerOptions) *Controller {
	if opts.Presenter == nil {
		opts.Presenter = NopPresenter{}
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	t := opts.Timeouts.withDefaults()

	c := &Controller{
		backend:   opts.Backend,
		pipeline:  NewPipeline(opts.Backend, opts.Presenter, t, opts.QuestionCount),
		connector: NewConnector(opts.Backend, opts.Dialer, opts.Probe, opts.Clock, t),
		presenter: opts.Presenter,
		clock:     opts.Clock,
		timeouts:  t,
		logger:    log.WithComponent("controller"),
		events:    make(chan ctlEvent, 64),
		stopped:   make(chan struct{}),
		state:     types.ConnIdle,
	}
	c.stateMirror.Store(types.ConnIdle)
	return c
}

// State reports the current connection state.
func (c *Controller) State() types.ConnectionState {
	return c.stateMirror.Load().(types.ConnectionState)
}

// Attempts reports the retry budget's attempts-made counter. Zero whenever
// no supervised connect sequence is in flight.
func (c *Controller) Attempts() int { return int(c.attemptsMirror.Load()) }

// setAttempts is the single mutation point of the retry budget.
func (c *Controller) setAttempts(n int) {
	c.attempts = n
	c.attemptsMirror.Store(int32(n))
}

// Submit validates nothing itself — callers run the form gate — and starts
// the setup pipeline; on success the controller connects automatically.
func (c *Controller) Submit(form FormInput) { c.post(evSubmit{form: form}) }

// Connect starts a supervised connection for an existing descriptor.
func (c *Controller) Connect(desc *backend.SessionDescriptor) { c.post(evConnect{desc: desc}) }

// Disconnect ends the live session on user request.
func (c *Controller) Disconnect() { c.post(evDisconnect{}) }

// Reset is "start new interview": it returns only after the loop has
// stopped every timer, released the session, and reached idle.
func (c *Controller) Reset() {
	done := make(chan struct{})
	c.post(evReset{done: done})
	select {
	case <-done:
	case <-c.stopped:
	}
}

func (c *Controller) post(ev ctlEvent) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

// Run is the controller loop. It returns once ctx is cancelled, after
// releasing all resources. Exactly one Run per controller.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			c.cleanup()
			return
		case ev := <-c.events:
			c.dispatch(ctx, ev)
		}
	}
}

// dispatch is the single place connection-lifecycle transitions happen.
func (c *Controller) dispatch(ctx context.Context, ev ctlEvent) {
	switch ev := ev.(type) {
	case evSubmit:
		c.handleSubmit(ctx, ev.form)
	case evConnect:
		c.handleConnect(ctx, ev.desc)
	case evDisconnect:
		c.handleDisconnect()
	case evReset:
		c.handleReset(ev.done)
	case evPipelineDone:
		if ev.gen != c.gen {
			return
		}
		c.handlePipelineDone(ctx, ev)
	case evConnectResult:
		c.handleConnectResult(ev)
	case evRetryDue:
		if ev.gen != c.gen {
			return
		}
		c.handleRetryDue(ctx)
	case evRoom:
		if ev.gen != c.gen {
			return
		}
		c.handleRoomEvent(ev.event)
	case evRoomClosed:
		if ev.gen != c.gen {
			return
		}
		c.sess = nil
	case evPollDue:
		if ev.gen != c.gen {
			return
		}
		c.handlePollDue()
	case evPollResult:
		if ev.gen != c.gen {
			return
		}
		c.handlePollResult(ev)
	case evDispatchDone:
		if ev.gen != c.gen {
			return
		}
		c.handleDispatchDone(ev)
	case evResultsDue:
		if ev.gen != c.gen {
			return
		}
		c.handleResultsDue()
	case evReportFetched:
		if ev.gen != c.gen {
			return
		}
		c.presenter.Results(ev.outcome)
	}
}

func (c *Controller) setState(next types.ConnectionState) {
	if next == c.state {
		return
	}
	old := c.state
	c.state = next
	c.stateMirror.Store(next)
	c.logger.Info().
		Str(log.FieldEvent, "state.transition").
		Str(log.FieldOldState, old.String()).
		Str(log.FieldNewState, next.String()).
		Msg("connection state changed")
	c.presenter.StateChanged(old, next)
}

// --- setup pipeline -------------------------------------------------------

func (c *Controller) handleSubmit(ctx context.Context, form FormInput) {
	if c.state != types.ConnIdle {
		c.presenter.Notice(NoticeWarn, "An interview is already in progress. Reset before starting a new one.")
		return
	}
	gen := c.gen
	go func() {
		desc, err := c.pipeline.Run(ctx, form)
		c.post(evPipelineDone{gen: gen, desc: desc, err: err})
	}()
}

func (c *Controller) handlePipelineDone(ctx context.Context, ev evPipelineDone) {
	if ev.err != nil {
		var pe *PipelineError
		if errors.As(ev.err, &pe) {
			c.presenter.Notice(NoticeError, pe.UserMessage())
		} else {
			c.presenter.Notice(NoticeError, ev.err.Error())
		}
		// Back to the form; state was never left idle.
		return
	}
	c.handleConnect(ctx, ev.desc)
}

// --- connection supervision ----------------------------------------------

func (c *Controller) handleConnect(ctx context.Context, desc *backend.SessionDescriptor) {
	if c.state != types.ConnIdle {
		c.presenter.Notice(NoticeWarn, "Already connecting or connected. Reset before reconnecting.")
		return
	}
	c.desc = desc
	c.setAttempts(1)
	c.setState(types.ConnConnecting)
	c.spawnAttempt(ctx)
}

func (c *Controller) spawnAttempt(ctx context.Context) {
	attemptCtx, cancel := context.WithCancel(ctx)
	c.connectCancel = cancel

	gen, attempt, desc := c.gen, c.attempts, c.desc
	c.logger.Info().
		Str(log.FieldEvent, "connect.attempt").
		Int(log.FieldAttempt, attempt).
		Str(log.FieldSessionID, desc.SessionID).
		Msg("starting connection attempt")

	go func() {
		sess, err := c.connector.Connect(attemptCtx, desc)
		c.post(evConnectResult{gen: gen, attempt: attempt, sess: sess, err: err})
	}()
}

func (c *Controller) handleConnectResult(ev evConnectResult) {
	if ev.gen != c.gen || c.state != types.ConnConnecting {
		// Stale era or the user moved on: release anything the late
		// attempt produced.
		if ev.sess != nil {
			s := ev.sess
			go func() { _ = s.Close() }()
		}
		return
	}

	if ev.err == nil {
		metrics.IncConnectAttempt("success")
		c.sess = ev.sess
		c.setAttempts(0)
		c.setState(types.ConnConnected)
		c.presenter.Notice(NoticeInfo, "Connected. The interview is live.")
		go c.pumpRoomEvents(c.gen, ev.sess)
		return
	}

	metrics.IncConnectAttempt("failure")
	ce := connectFailure("connect", ev.err)
	c.logger.Warn().Err(ev.err).
		Str(log.FieldEvent, "connect.attempt_failed").
		Int(log.FieldAttempt, ev.attempt).
		Str("cause", string(ce.Cause)).
		Msg("connection attempt failed")

	if ce.Cause.Retryable() && c.attempts < MaxConnectAttempts {
		delay := c.timeouts.RetryBase * time.Duration(c.attempts)
		metrics.IncConnectRetry()
		c.presenter.Notice(NoticeWarn,
			fmt.Sprintf("Connection attempt %d failed (%s). Retrying in %s…", ev.attempt, ce.Cause, delay))
		gen := c.gen
		c.retryTimer = c.clock.AfterFunc(delay, func() { c.post(evRetryDue{gen: gen}) })
		return
	}

	// Terminal: non-retryable cause or budget spent.
	c.setAttempts(0)
	c.releaseConnect()
	c.setState(types.ConnError)
	c.presenter.Notice(NoticeError, ce.Cause.Remediation())
}

func (c *Controller) handleRetryDue(ctx context.Context) {
	if c.state != types.ConnConnecting {
		return
	}
	c.retryTimer = nil
	c.setAttempts(c.attempts + 1)
	c.spawnAttempt(ctx)
}

func (c *Controller) handleDisconnect() {
	switch c.state {
	case types.ConnConnecting:
		c.releaseConnect()
		c.setState(types.ConnDisconnected)
	case types.ConnConnected, types.ConnReconnecting:
		c.closeSession()
		c.setState(types.ConnDisconnected)
	default:
		// Nothing live; ignore.
	}
}

// pumpRoomEvents forwards room events into the controller loop. It ends
// when the session's event channel closes.
func (c *Controller) pumpRoomEvents(gen uint64, sess rtc.RoomSession) {
	for ev := range sess.Events() {
		c.post(evRoom{gen: gen, event: ev})
	}
	c.post(evRoomClosed{gen: gen})
}

func (c *Controller) handleRoomEvent(event rtc.Event) {
	switch ev := event.(type) {
	case rtc.ParticipantConnectedEvent:
		c.presenter.Notice(NoticeInfo, fmt.Sprintf("%s joined the room.", ev.Identity))
	case rtc.ParticipantDisconnectedEvent:
		c.presenter.Notice(NoticeInfo, fmt.Sprintf("%s left the room.", ev.Identity))
		// A remote participant leaving is the trigger — and the only
		// trigger — to reconcile against the backend. The transport
		// disconnect event conflates "interviewer done" with "network
		// blip" and is never used to infer completion.
		if ev.Identity != rtc.IdentityCandidate && !c.reconciling &&
			(c.state == types.ConnConnected || c.state == types.ConnReconnecting) {
			c.startReconciler()
		}
	case rtc.TranscriptEvent:
		c.presenter.Notice(NoticeInfo, fmt.Sprintf("%s: %s", ev.Identity, ev.Text))
	case rtc.TrackSubscribedEvent:
		c.logger.Debug().Str(log.FieldEvent, "room.track_subscribed").
			Str(log.FieldIdentity, ev.Identity).Str("kind", ev.Kind).Msg("remote track available")
	case rtc.TrackUnsubscribedEvent:
		c.logger.Debug().Str(log.FieldEvent, "room.track_unsubscribed").
			Str(log.FieldIdentity, ev.Identity).Str("kind", ev.Kind).Msg("remote track gone")
	case rtc.ConnectionQualityEvent:
		c.logger.Debug().Str(log.FieldEvent, "room.quality").
			Str(log.FieldIdentity, ev.Identity).Str("quality", ev.Quality).Msg("connection quality changed")
	case rtc.ReconnectingEvent:
		if c.state == types.ConnConnected {
			c.setState(types.ConnReconnecting)
			c.presenter.Notice(NoticeWarn, "Connection lost, reconnecting…")
		}
	case rtc.ReconnectedEvent:
		if c.state == types.ConnReconnecting {
			c.setState(types.ConnConnected)
			c.presenter.Notice(NoticeInfo, "Connection restored.")
		}
	case rtc.DisconnectedEvent:
		if c.state == types.ConnConnected || c.state == types.ConnReconnecting {
			c.setState(types.ConnDisconnected)
			if !c.reconciling {
				c.presenter.Notice(NoticeWarn, "The session connection ended.")
			}
		}
	}
}

// --- status reconciliation -------------------------------------------------

func (c *Controller) startReconciler() {
	c.reconciling = true
	c.polls = 0
	c.liveNoticeSent = false
	c.presenter.Notice(NoticeInfo, "The interviewer left. Confirming interview status…")
	c.schedulePoll()
}

func (c *Controller) schedulePoll() {
	gen := c.gen
	c.pollTimer = c.clock.AfterFunc(c.timeouts.PollInterval, func() { c.post(evPollDue{gen: gen}) })
}

func (c *Controller) handlePollDue() {
	if !c.reconciling {
		return
	}
	c.pollTimer = nil
	gen, id, timeout := c.gen, c.desc.SessionID, c.timeouts.PollRequest
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		status, err := c.backend.SessionStatus(ctx, id)
		c.post(evPollResult{gen: gen, status: status, err: err})
	}()
}

func (c *Controller) handlePollResult(ev evPollResult) {
	if !c.reconciling {
		return
	}
	c.polls++

	if ev.err != nil {
		// Poll failures count toward the ceiling but never stop the
		// reconciler early.
		metrics.IncReconcilePoll("error")
		c.logger.Warn().Err(ev.err).
			Str(log.FieldEvent, "poll.failed").
			Int(log.FieldAttempt, c.polls).
			Msg("status poll failed")
		c.continueOrDegrade()
		return
	}

	metrics.IncReconcilePoll(ev.status.String())
	switch {
	case ev.status == types.StatusCompleted:
		c.stopReconciler()
		metrics.IncReconcileOutcome("completed")
		c.beginCompletion()
	case ev.status == types.StatusDisconnected:
		c.stopReconciler()
		metrics.IncReconcileOutcome("disconnected")
		c.endWithoutReport(types.StatusDisconnected,
			"The interview ended before completing. No report was generated.")
	case ev.status == types.StatusFailed:
		c.stopReconciler()
		metrics.IncReconcileOutcome("failed")
		c.endWithoutReport(types.StatusFailed,
			"The interview session failed. No report was generated.")
	default:
		// Still live (or not yet terminal): keep polling.
		if !c.liveNoticeSent {
			c.liveNoticeSent = true
			c.presenter.Notice(NoticeInfo, "Interview still in progress…")
		}
		c.continueOrDegrade()
	}
}

func (c *Controller) continueOrDegrade() {
	if c.polls < MaxPollAttempts {
		c.schedulePoll()
		return
	}
	c.stopReconciler()
	metrics.IncReconcileOutcome("exhausted")
	// Degraded but safe: the user gets a legible terminal state instead
	// of an indefinite spinner.
	msg := "The interview status could not be confirmed. Check the dashboard for the final result."
	c.presenter.Notice(NoticeWarn, msg)
	c.presenter.Results(Outcome{SessionID: c.desc.SessionID, Message: msg})
}

func (c *Controller) stopReconciler() {
	c.reconciling = false
	if c.pollTimer != nil {
		c.pollTimer.Stop()
		c.pollTimer = nil
	}
}

func (c *Controller) endWithoutReport(status types.SessionStatus, msg string) {
	c.closeSession()
	if c.state != types.ConnIdle {
		c.setState(types.ConnDisconnected)
	}
	c.presenter.Notice(NoticeWarn, msg)
	c.presenter.Results(Outcome{SessionID: c.desc.SessionID, Status: status, Message: msg})
}

// --- completion dispatch ----------------------------------------------------

func (c *Controller) beginCompletion() {
	if c.completionFired {
		return
	}
	c.completionFired = true
	c.closeSession()
	if c.state != types.ConnIdle {
		c.setState(types.ConnDisconnected)
	}
	c.presenter.Notice(NoticeInfo, "Interview completed.")

	gen, id := c.gen, c.desc.SessionID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeouts.PollRequest)
		defer cancel()
		msg, err := c.backend.SendReport(ctx, id)
		c.post(evDispatchDone{gen: gen, message: msg, err: err})
	}()
}

func (c *Controller) handleDispatchDone(ev evDispatchDone) {
	// Every dispatch outcome maps to a distinct visible message; none are
	// swallowed. A failed dispatch never rolls back the completed session.
	switch {
	case ev.err == nil:
		metrics.IncReportDispatch("success")
		msg := ev.message
		if msg == "" {
			msg = "The interview report was emailed to you."
		}
		c.presenter.Notice(NoticeInfo, msg)
	case backend.RemoteMessage(ev.err) != "":
		metrics.IncReportDispatch("rejected")
		c.presenter.Notice(NoticeWarn,
			fmt.Sprintf("The report email could not be sent: %s", backend.RemoteMessage(ev.err)))
	default:
		metrics.IncReportDispatch("error")
		c.presenter.Notice(NoticeWarn,
			"The report email request failed. You can download the report from the results view.")
	}

	gen := c.gen
	c.resultsTimer = c.clock.AfterFunc(c.timeouts.ResultsDelay, func() { c.post(evResultsDue{gen: gen}) })
}

func (c *Controller) handleResultsDue() {
	c.resultsTimer = nil
	gen, id, timeout := c.gen, c.desc.SessionID, c.timeouts.PollRequest
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		outcome := Outcome{
			SessionID: id,
			Status:    types.StatusCompleted,
			Message:   "Interview completed.",
		}
		report, err := c.backend.DownloadReport(ctx, id)
		if err == nil {
			outcome.Report = report
		}
		c.post(evReportFetched{gen: gen, outcome: outcome})
	}()
}

// --- reset / teardown -------------------------------------------------------

// handleReset is "start new interview". Everything stops synchronously
// before done is closed: the generation bump invalidates in-flight timer
// callbacks and goroutine results, the timers are stopped, the session is
// released, and state returns to idle with a zero retry budget.
func (c *Controller) handleReset(done chan struct{}) {
	c.gen++
	c.stopTimers()
	c.releaseConnect()
	c.closeSession()

	c.desc = nil
	c.setAttempts(0)
	c.polls = 0
	c.reconciling = false
	c.liveNoticeSent = false
	c.completionFired = false
	c.setState(types.ConnIdle)
	close(done)
}

func (c *Controller) cleanup() {
	c.gen++
	c.stopTimers()
	c.releaseConnect()
	c.closeSession()
}

func (c *Controller) stopTimers() {
	for _, t := range []*Timer{&c.retryTimer, &c.pollTimer, &c.resultsTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func (c *Controller) releaseConnect() {
	if c.connectCancel != nil {
		c.connectCancel()
		c.connectCancel = nil
	}
}

func (c *Controller) closeSession() {
	if c.sess == nil {
		return
	}
	sess := c.sess
	c.sess = nil
	_ = sess.Close()
}
