// SPDX-License-Identifier: MIT

package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// startController spins up a controller loop wired to fakes and tears it
// down with the test.
func startController(t *testing.T, fb *fakeBackend, fd *fakeDialer, probe rtc.MicProbe) (*Controller, *recordingPresenter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	pres := newRecordingPresenter()
	c := NewController(ControllerOptions{
		Backend:   fb,
		Dialer:    fd,
		Probe:     probe,
		Presenter: pres,
		Clock:     clock,
		Timeouts:  testTimeouts(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		select {
		case <-c.stopped:
		case <-time.After(2 * time.Second):
			t.Error("controller loop did not stop")
		}
	})
	return c, pres, clock
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// advanceUntil repeatedly moves the fake clock forward until cond holds.
func advanceUntil(t *testing.T, clock *fakeClock, step time.Duration, what string, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		clock.Advance(step)
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out advancing for %s", what)
}

func TestConnectSuccessZeroRetries(t *testing.T) {
	fb := newFakeBackend()
	fd := &fakeDialer{}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	pres.waitState(t, types.ConnConnecting)
	advanceUntil(t, clock, 500*time.Millisecond, "connected state", func() bool {
		return c.State() == types.ConnConnected
	})

	assert.Equal(t, 1, fd.callCount(), "exactly one connect attempt")
	retries := 0
	for _, d := range clock.scheduledDelays() {
		if d == 2*time.Second || d == 4*time.Second {
			retries++
		}
	}
	assert.Zero(t, retries, "no retry timers scheduled")

	// The live notification is best-effort but should have been sent.
	waitUntil(t, "status notification", func() bool {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return fb.updateCalls == 1
	})
}

func TestRetryPolicyExactlyThreeAttempts(t *testing.T) {
	fb := newFakeBackend()
	fd := &fakeDialer{script: []dialScript{{err: errors.New("connection refused")}}}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	pres.waitState(t, types.ConnConnecting)

	// Attempt 1 fails; retry scheduled at base×1.
	waitUntil(t, "first retry timer", func() bool { return clock.pendingWithDelay(2*time.Second) == 1 })
	require.Equal(t, 1, fd.callCount())
	clock.Advance(2 * time.Second)

	// Attempt 2 fails; retry scheduled at base×2.
	waitUntil(t, "second attempt", func() bool { return fd.callCount() == 2 })
	waitUntil(t, "second retry timer", func() bool { return clock.pendingWithDelay(4*time.Second) == 1 })
	clock.Advance(4 * time.Second)

	// Attempt 3 fails; budget exhausted, terminal error, no third delay.
	pres.waitState(t, types.ConnError)
	assert.Equal(t, 3, fd.callCount(), "exactly three attempts")
	assert.Zero(t, clock.pending(), "no timers after terminal failure")

	var retryDelays []time.Duration
	for _, d := range clock.scheduledDelays() {
		if d == 2*time.Second || d == 4*time.Second || d == 6*time.Second {
			retryDelays = append(retryDelays, d)
		}
	}
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, retryDelays,
		"linear backoff base×1, base×2 and never a third delay")

	// Budget resets on terminal failure.
	assert.Equal(t, 0, c.Attempts())
}

func TestNonRetryableCauseSingleAttempt(t *testing.T) {
	fb := newFakeBackend()
	fd := &fakeDialer{}
	c, pres, _ := startController(t, fb, fd, rtc.StaticProbe{Err: rtc.ErrPermissionDenied})

	c.Connect(testDescriptor())
	pres.waitState(t, types.ConnError)

	assert.Zero(t, fd.callCount(), "probe failure never reaches the transport")
	assert.True(t, pres.hasNoticeContaining("Microphone access was denied"),
		"remediation message surfaced")
	assert.Equal(t, types.ConnError, c.State())
}

func TestResetReturnsToIdleWithNoLiveTimers(t *testing.T) {
	fb := newFakeBackend()
	fd := &fakeDialer{script: []dialScript{{err: errors.New("connection refused")}}}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	pres.waitState(t, types.ConnConnecting)
	waitUntil(t, "retry timer pending", func() bool { return clock.pendingWithDelay(2*time.Second) == 1 })

	c.Reset()
	assert.Equal(t, types.ConnIdle, c.State())
	assert.Zero(t, clock.pending(), "reset stops every timer synchronously")
	assert.Equal(t, 0, c.Attempts(), "retry budget cleared")

	// Issuing zero further events must produce zero further state changes.
	states := pres.stateCount()
	notices := pres.noticeCount()
	clock.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, states, pres.stateCount(), "no state changes after reset")
	assert.Equal(t, notices, pres.noticeCount(), "no notices after reset")
	assert.Equal(t, 1, fd.callCount(), "stale retry never fires")
}

func TestResetReleasesLiveSession(t *testing.T) {
	fb := newFakeBackend()
	fd := &fakeDialer{}
	c, _, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	advanceUntil(t, clock, 500*time.Millisecond, "connected", func() bool {
		return c.State() == types.ConnConnected
	})
	sess := fd.lastSession()
	require.NotNil(t, sess)

	c.Reset()
	assert.Equal(t, types.ConnIdle, c.State())
	assert.True(t, sess.isClosed(), "live session released on reset")
	assert.Zero(t, clock.pending())
}

func TestReconcilerCompletedSequence(t *testing.T) {
	fb := newFakeBackend()
	fb.statusScript = []types.SessionStatus{
		types.StatusInterviewing, types.StatusInterviewing, types.StatusCompleted,
	}
	fd := &fakeDialer{}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	advanceUntil(t, clock, 500*time.Millisecond, "connected", func() bool {
		return c.State() == types.ConnConnected
	})

	// Interviewer leaving is the only trigger for reconciliation.
	fd.lastSession().emit(rtc.ParticipantDisconnectedEvent{Identity: rtc.IdentityInterviewer})

	for i := 1; i <= 3; i++ {
		waitUntil(t, "poll timer", func() bool { return clock.pendingWithDelay(time.Second) >= 1 })
		clock.Advance(time.Second)
		waitUntil(t, "poll result", func() bool { return fb.statusCount() >= i })
	}

	// The dispatcher pauses briefly before the results view.
	advanceUntil(t, clock, 100*time.Millisecond, "results view", func() bool {
		return pres.resultCount() >= 1
	})
	outcome := pres.waitResult(t)
	assert.Equal(t, types.StatusCompleted, outcome.Status)
	assert.NotEmpty(t, outcome.Report, "report downloaded for the results view")

	assert.Equal(t, 3, fb.statusCount(), "polling stopped at the terminal status")
	assert.Equal(t, 1, fb.sendCount(), "completion dispatcher fired exactly once")

	// Nothing further happens after the terminal status.
	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, fb.statusCount())
	assert.Equal(t, 1, fb.sendCount())
}

func TestReconcilerExhaustsBudgetAndDegrades(t *testing.T) {
	fb := newFakeBackend()
	fb.statusScript = []types.SessionStatus{types.StatusInterviewing}
	fd := &fakeDialer{}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	advanceUntil(t, clock, 500*time.Millisecond, "connected", func() bool {
		return c.State() == types.ConnConnected
	})
	fd.lastSession().emit(rtc.ParticipantDisconnectedEvent{Identity: rtc.IdentityInterviewer})

	for i := 1; i <= MaxPollAttempts; i++ {
		waitUntil(t, "poll timer", func() bool { return clock.pendingWithDelay(time.Second) >= 1 })
		clock.Advance(time.Second)
		waitUntil(t, "poll result", func() bool { return fb.statusCount() >= i })
	}

	outcome := pres.waitResult(t)
	assert.Empty(t, outcome.Status, "no terminal status was observed")
	assert.Contains(t, outcome.Message, "could not be confirmed")

	assert.Equal(t, MaxPollAttempts, fb.statusCount(), "polling stops at the ceiling")
	assert.Zero(t, fb.sendCount(), "dispatcher never fires on a degraded outcome")
	assert.Zero(t, clock.pending(), "no timers after degrading")
}

func TestReconcilerDisconnectedSkipsDispatch(t *testing.T) {
	fb := newFakeBackend()
	fb.statusScript = []types.SessionStatus{types.StatusDisconnected}
	fd := &fakeDialer{}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	advanceUntil(t, clock, 500*time.Millisecond, "connected", func() bool {
		return c.State() == types.ConnConnected
	})
	fd.lastSession().emit(rtc.ParticipantDisconnectedEvent{Identity: rtc.IdentityInterviewer})

	waitUntil(t, "poll timer", func() bool { return clock.pendingWithDelay(time.Second) >= 1 })
	clock.Advance(time.Second)

	outcome := pres.waitResult(t)
	assert.Equal(t, types.StatusDisconnected, outcome.Status)
	assert.Zero(t, fb.sendCount(), "no report dispatch on disconnected")
	assert.Empty(t, outcome.Report)
}

func TestReconcilerPollErrorsCountTowardCeiling(t *testing.T) {
	fb := newFakeBackend()
	fb.statusErrs = []error{errors.New("poll failed"), errors.New("poll failed"), nil}
	fb.statusScript = []types.SessionStatus{
		types.StatusCompleted, types.StatusCompleted, types.StatusCompleted,
	}
	fd := &fakeDialer{}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	advanceUntil(t, clock, 500*time.Millisecond, "connected", func() bool {
		return c.State() == types.ConnConnected
	})
	fd.lastSession().emit(rtc.ParticipantDisconnectedEvent{Identity: rtc.IdentityInterviewer})

	for i := 1; i <= 3; i++ {
		waitUntil(t, "poll timer", func() bool { return clock.pendingWithDelay(time.Second) >= 1 })
		clock.Advance(time.Second)
		waitUntil(t, "poll result", func() bool { return fb.statusCount() >= i })
	}

	advanceUntil(t, clock, 100*time.Millisecond, "results view", func() bool {
		return pres.resultCount() >= 1
	})
	outcome := pres.waitResult(t)
	assert.Equal(t, types.StatusCompleted, outcome.Status,
		"poll errors are tolerated and polling continues to the terminal status")
	assert.Equal(t, 1, fb.sendCount())
}

func TestTransportDisconnectAloneNeverTriggersCompletion(t *testing.T) {
	fb := newFakeBackend()
	fd := &fakeDialer{}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	advanceUntil(t, clock, 500*time.Millisecond, "connected", func() bool {
		return c.State() == types.ConnConnected
	})

	// A bare transport disconnect conflates "interviewer left" with a
	// network blip; it must not start reconciliation or dispatch.
	fd.lastSession().emit(rtc.DisconnectedEvent{Reason: "transport failure"})
	pres.waitState(t, types.ConnDisconnected)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, fb.statusCount(), "no status polling without the interviewer-left trigger")
	assert.Zero(t, fb.sendCount())
}

func TestReconnectingRoundTrip(t *testing.T) {
	fb := newFakeBackend()
	fd := &fakeDialer{}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	c.Connect(testDescriptor())
	advanceUntil(t, clock, 500*time.Millisecond, "connected", func() bool {
		return c.State() == types.ConnConnected
	})

	fd.lastSession().emit(rtc.ReconnectingEvent{})
	pres.waitState(t, types.ConnReconnecting)
	fd.lastSession().emit(rtc.ReconnectedEvent{})
	pres.waitState(t, types.ConnConnected)
}

func TestEndToEndSubmitToConnected(t *testing.T) {
	fb := newFakeBackend()
	fd := &fakeDialer{}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	form := FormInput{
		Name:     "Jordan Reyes",
		Email:    "jordan@example.com",
		Position: "Backend Engineer",
		JD:       &Attachment{Filename: "jd.txt", Content: []byte("job description")},
		Resume:   &Attachment{Filename: "resume.txt", Content: []byte("resume")},
	}
	_, verdict := ValidateForm(form, DefaultMaxAttachmentBytes)
	require.True(t, verdict.Valid)

	c.Submit(form)
	advanceUntil(t, clock, 500*time.Millisecond, "connected", func() bool {
		return c.State() == types.ConnConnected
	})

	u, a, q, cr := fb.calls()
	assert.Equal(t, []int{1, 1, 1, 1}, []int{u, a, q, cr}, "each pipeline step ran once")
	assert.Equal(t, 1, fd.callCount(), "connected with zero retries")

	pres.mu.Lock()
	progress := append([]int(nil), pres.progress...)
	pres.mu.Unlock()
	assert.Equal(t, []int{25, 50, 75, 100}, progress, "monotonic pipeline progress")
}

func TestEndToEndRetryThenError(t *testing.T) {
	fb := newFakeBackend()
	fd := &fakeDialer{script: []dialScript{{err: errors.New("network timeout: connection refused")}}}
	c, pres, clock := startController(t, fb, fd, rtc.StaticProbe{})

	form := FormInput{
		Name:     "Jordan Reyes",
		Email:    "jordan@example.com",
		Position: "Backend Engineer",
		JD:       &Attachment{Filename: "jd.txt", Content: []byte("job description")},
		Resume:   &Attachment{Filename: "resume.txt", Content: []byte("resume")},
	}
	c.Submit(form)
	pres.waitState(t, types.ConnConnecting)

	for attempt := 1; attempt < MaxConnectAttempts; attempt++ {
		delay := time.Duration(attempt) * 2 * time.Second
		waitUntil(t, "retry timer", func() bool { return clock.pendingWithDelay(delay) == 1 })
		clock.Advance(delay)
	}
	pres.waitState(t, types.ConnError)
	assert.Equal(t, MaxConnectAttempts, fd.callCount())
	assert.Equal(t, types.ConnError, c.State())
}

func TestPipelineFailureReturnsToForm(t *testing.T) {
	fb := newFakeBackend()
	fb.analyzeErr = errors.New("analysis model unavailable")
	fd := &fakeDialer{}
	c, pres, _ := startController(t, fb, fd, rtc.StaticProbe{})

	c.Submit(FormInput{
		Name:     "Jordan Reyes",
		Email:    "jordan@example.com",
		Position: "Backend Engineer",
		JD:       &Attachment{Filename: "jd.txt", Content: []byte("jd")},
		Resume:   &Attachment{Filename: "resume.txt", Content: []byte("resume")},
	})

	waitUntil(t, "pipeline failure notice", func() bool {
		return pres.hasNoticeContaining("analyze step failed")
	})
	assert.Equal(t, types.ConnIdle, c.State(), "state never left idle")
	u, a, q, cr := fb.calls()
	assert.Equal(t, 1, u)
	assert.Equal(t, 1, a)
	assert.Zero(t, q, "later steps never invoked")
	assert.Zero(t, cr)
	assert.Zero(t, fd.callCount(), "no connect without a descriptor")
}
