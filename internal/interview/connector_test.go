// SPDX-License-Identifier: MIT

package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhire/voxhire/internal/backend"
	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/types"
)

func newTestConnector(fb *fakeBackend, fd *fakeDialer, probe rtc.MicProbe, clock Clock) *Connector {
	return NewConnector(fb, fd, probe, clock, testTimeouts())
}

func TestConnectorValidatesBeforeDialing(t *testing.T) {
	tests := []struct {
		name string
		desc *backend.SessionDescriptor
	}{
		{"nil descriptor", nil},
		{"empty token", &backend.SessionDescriptor{ServerURL: "ws://rtc.test", Token: "  "}},
		{"bad scheme", &backend.SessionDescriptor{ServerURL: "ftp://rtc.test", Token: "tok"}},
		{"no host", &backend.SessionDescriptor{ServerURL: "ws://", Token: "tok"}},
		{"unparseable URL", &backend.SessionDescriptor{ServerURL: "ws://a b/%zz\x7f", Token: "tok"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fd := &fakeDialer{}
			conn := newTestConnector(newFakeBackend(), fd, rtc.StaticProbe{}, newFakeClock())

			_, err := conn.Connect(context.Background(), tc.desc)
			require.Error(t, err)

			var ce *ConnectError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, CauseMalformed, ce.Cause)
			assert.False(t, ce.Cause.Retryable())
			assert.Zero(t, fd.callCount(), "malformed input fails before any network I/O")
		})
	}
}

func TestConnectorProbeFailuresClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConnectCause
	}{
		{"permission denied", rtc.ErrPermissionDenied, CausePermission},
		{"no device", rtc.ErrDeviceNotFound, CauseDevice},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fd := &fakeDialer{}
			conn := newTestConnector(newFakeBackend(), fd, rtc.StaticProbe{Err: tc.err}, newFakeClock())

			_, err := conn.Connect(context.Background(), testDescriptor())
			var ce *ConnectError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.want, ce.Cause)
			assert.Zero(t, fd.callCount(), "probe runs before the transport connect")
		})
	}
}

func TestConnectorConnectTimeoutDiscardsLateSession(t *testing.T) {
	clock := newFakeClock()
	fd := &fakeDialer{script: []dialScript{{hang: true}}}
	conn := newTestConnector(newFakeBackend(), fd, rtc.StaticProbe{}, clock)

	errs := make(chan error, 1)
	go func() {
		_, err := conn.Connect(context.Background(), testDescriptor())
		errs <- err
	}()

	// The connect race timer is armed once the dial is in flight.
	waitUntil(t, "connect race timer", func() bool {
		return clock.pendingWithDelay(30*time.Second) == 1
	})
	clock.Advance(30 * time.Second)

	err := <-errs
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CauseTimeout, ce.Cause)
	assert.True(t, ce.Cause.Retryable())
}

func TestConnectorPublishTimeout(t *testing.T) {
	clock := newFakeClock()
	fdHang := &hangingPublishDialer{inner: &fakeDialer{}}
	conn := NewConnector(newFakeBackend(), fdHang, rtc.StaticProbe{}, clock, testTimeouts())

	errs := make(chan error, 1)
	go func() {
		_, err := conn.Connect(context.Background(), testDescriptor())
		errs <- err
	}()

	waitUntil(t, "publish race timer", func() bool {
		return clock.pendingWithDelay(15*time.Second) == 1
	})
	clock.Advance(15 * time.Second)

	err := <-errs
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CauseTimeout, ce.Cause)
	assert.Equal(t, "publish", ce.Step)
	require.NotNil(t, fdHang.session)
	assert.True(t, fdHang.session.isClosed(), "failed publish releases the session")
}

// hangingPublishDialer produces sessions whose PublishAudio blocks until
// its context is cancelled.
type hangingPublishDialer struct {
	inner   *fakeDialer
	session *hangingPublishSession
}

func (d *hangingPublishDialer) DialRoom(ctx context.Context, u, r, tok, id string) (rtc.RoomSession, error) {
	s, err := d.inner.DialRoom(ctx, u, r, tok, id)
	if err != nil {
		return nil, err
	}
	d.session = &hangingPublishSession{fakeSession: s.(*fakeSession)}
	return d.session, nil
}

type hangingPublishSession struct {
	*fakeSession
}

func (s *hangingPublishSession) PublishAudio(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *hangingPublishSession) isClosed() bool { return s.fakeSession.isClosed() }

func TestConnectorVerificationIsAdvisory(t *testing.T) {
	clock := newFakeClock()
	fd := &silentAudioDialer{}
	fb := newFakeBackend()
	conn := NewConnector(fb, fd, rtc.StaticProbe{}, clock, testTimeouts())

	type result struct {
		sess rtc.RoomSession
		err  error
	}
	results := make(chan result, 1)
	go func() {
		sess, err := conn.Connect(context.Background(), testDescriptor())
		results <- result{sess, err}
	}()

	waitUntil(t, "verify settle timer", func() bool {
		return clock.pendingWithDelay(500*time.Millisecond) == 1
	})
	clock.Advance(500 * time.Millisecond)

	res := <-results
	require.NoError(t, res.err, "an unverifiable track never aborts the connect")
	require.NotNil(t, res.sess)
	_ = res.sess.Close()
}

// silentAudioDialer produces sessions that publish fine but never report
// an active local track.
type silentAudioDialer struct{ fakeDialer }

func (d *silentAudioDialer) DialRoom(ctx context.Context, u, r, tok, id string) (rtc.RoomSession, error) {
	s, err := d.fakeDialer.DialRoom(ctx, u, r, tok, id)
	if err != nil {
		return nil, err
	}
	return &silentAudioSession{s.(*fakeSession)}, nil
}

type silentAudioSession struct{ *fakeSession }

func (s *silentAudioSession) LocalAudioActive() bool { return false }

func TestConnectorNotifyFailureDoesNotAbort(t *testing.T) {
	clock := newFakeClock()
	fd := &fakeDialer{}
	fb := newFakeBackend()
	conn := NewConnector(&failingNotifyBackend{fakeBackend: fb}, fd, rtc.StaticProbe{}, clock, testTimeouts())

	results := make(chan error, 1)
	go func() {
		sess, err := conn.Connect(context.Background(), testDescriptor())
		if sess != nil {
			_ = sess.Close()
		}
		results <- err
	}()

	waitUntil(t, "verify settle timer", func() bool {
		return clock.pendingWithDelay(500*time.Millisecond) == 1
	})
	clock.Advance(500 * time.Millisecond)

	assert.NoError(t, <-results, "a failed status notification never fails the connect")
}

type failingNotifyBackend struct {
	*fakeBackend
}

func (b *failingNotifyBackend) UpdateStatus(context.Context, string, types.SessionStatus) error {
	return errors.New("backend unreachable")
}

func TestConnectorDialRejectionIsTerminal(t *testing.T) {
	clock := newFakeClock()
	fd := &fakeDialer{script: []dialScript{{err: rtc.ErrRejected}}}
	conn := newTestConnector(newFakeBackend(), fd, rtc.StaticProbe{}, clock)

	_, err := conn.Connect(context.Background(), testDescriptor())
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CauseGeneric, ce.Cause, "a rejected join token is not worth retrying")
	assert.False(t, ce.Cause.Retryable())
}
