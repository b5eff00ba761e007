// SPDX-License-Identifier: MIT

package rtc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voxhire/voxhire/internal/log"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReconnectDelay   = 500 * time.Millisecond
)

// Dialer opens websocket room sessions against a gateway.
type Dialer struct {
	// HandshakeTimeout bounds dial plus hello/hello_ack. Zero means 10s.
	HandshakeTimeout time.Duration
	// ReconnectDelay is the pause before the single re-dial attempt after
	// a transport drop. Zero means 500ms.
	ReconnectDelay time.Duration
}

// DialRoom connects to serverURL/roomName, authenticates with the join
// token, and returns the live session once the gateway acknowledges.
func (d *Dialer) DialRoom(ctx context.Context, serverURL, roomName, token, identity string) (*ClientSession, error) {
	wsURL := strings.TrimRight(serverURL, "/") + "/" + roomName

	conn, participants, err := d.dial(ctx, wsURL, token, identity)
	if err != nil {
		return nil, err
	}

	s := &ClientSession{
		dialer:   d,
		url:      wsURL,
		token:    token,
		identity: identity,
		conn:     conn,
		events:   make(chan Event, 256),
		done:     make(chan struct{}),
		logger:   log.WithComponent("rtc.client"),
	}
	for _, p := range participants {
		s.emit(ParticipantConnectedEvent{Identity: p})
	}
	go s.readLoop()
	return s, nil
}

func (d *Dialer) dial(ctx context.Context, wsURL, token, identity string) (*websocket.Conn, []string, error) {
	handshake := d.HandshakeTimeout
	if handshake <= 0 {
		handshake = defaultHandshakeTimeout
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, has := ctx.Deadline(); !has {
		dialCtx, cancel = context.WithTimeout(ctx, handshake)
		defer cancel()
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshake}
	conn, resp, err := dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, nil, fmt.Errorf("rtc: dial %s (status %d): %w", wsURL, resp.StatusCode, err)
		}
		return nil, nil, fmt.Errorf("rtc: dial %s: %w", wsURL, err)
	}

	if err := conn.WriteJSON(frame{Type: frameHello, Token: token, Identity: identity}); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rtc: send hello: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshake))
	var ack frame
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rtc: read hello_ack: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	switch ack.Type {
	case frameHelloAck:
		return conn, ack.Participants, nil
	case frameError:
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrRejected, ack.Message)
	default:
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rtc: unexpected first frame %q", ack.Type)
	}
}

// ClientSession is the websocket RoomSession implementation. One transport
// drop is re-dialled transparently (Reconnecting/Reconnected events); a
// second failure ends the session.
type ClientSession struct {
	dialer   *Dialer
	url      string
	token    string
	identity string
	logger   zerolog.Logger

	conn *websocket.Conn

	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	ackMu  sync.Mutex
	pubAck chan struct{}

	localAudio atomic.Bool

	errMu sync.Mutex
	err   error
}

// Identity returns the identity this session joined with.
func (s *ClientSession) Identity() string { return s.identity }

// Events yields room events until the session ends.
func (s *ClientSession) Events() <-chan Event { return s.events }

// PublishAudio announces the local audio track and waits for the gateway
// acknowledgement or ctx expiry.
func (s *ClientSession) PublishAudio(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	ack := make(chan struct{})
	s.ackMu.Lock()
	s.pubAck = ack
	s.ackMu.Unlock()

	if err := s.sendJSON(frame{Type: framePublish, Kind: "audio"}); err != nil {
		return err
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		s.ackMu.Lock()
		if s.pubAck == ack {
			s.pubAck = nil
		}
		s.ackMu.Unlock()
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// UnpublishAudio withdraws the local audio track.
func (s *ClientSession) UnpublishAudio() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.localAudio.Store(false)
	return s.sendJSON(frame{Type: frameUnpublish, Kind: "audio"})
}

// LocalAudioActive reports whether the gateway has acknowledged the local
// audio track.
func (s *ClientSession) LocalAudioActive() bool { return s.localAudio.Load() }

// SendTranscript relays a spoken line to the other participants.
func (s *ClientSession) SendTranscript(text string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.sendJSON(frame{Type: frameTranscript, Text: text})
}

// Close tears the session down and waits for the event loop to stop. It is
// safe to call more than once.
func (s *ClientSession) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		conn := s.conn
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal transport error, if any, once the session ends.
func (s *ClientSession) Err() error {
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *ClientSession) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *ClientSession) sendJSON(f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	return s.conn.WriteJSON(f)
}

func (s *ClientSession) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		// Never block the read loop on a slow consumer.
	}
}

func (s *ClientSession) readLoop() {
	defer close(s.done)
	defer close(s.events)

	conn := s.conn
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.emit(DisconnectedEvent{Reason: "closed"})
				return
			}
			next, rerr := s.reconnect()
			if rerr != nil {
				s.setErr(err)
				s.emit(DisconnectedEvent{Reason: "transport failure"})
				return
			}
			conn = next
			continue
		}
		s.handleFrame(f)
	}
}

func (s *ClientSession) reconnect() (*websocket.Conn, error) {
	s.emit(ReconnectingEvent{})

	delay := s.dialer.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	time.Sleep(delay)
	if s.closed.Load() {
		return nil, ErrClosed
	}

	conn, participants, err := s.dialer.dial(context.Background(), s.url, s.token, s.identity)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", "rtc.reconnect_failed").Msg("re-dial failed")
		return nil, err
	}

	s.writeMu.Lock()
	old := s.conn
	s.conn = conn
	s.writeMu.Unlock()
	_ = old.Close()

	s.logger.Info().Str("event", "rtc.reconnected").Msg("transport recovered")
	s.emit(ReconnectedEvent{})
	for _, p := range participants {
		s.emit(ParticipantConnectedEvent{Identity: p})
	}
	if s.localAudio.Load() {
		_ = s.sendJSON(frame{Type: framePublish, Kind: "audio"})
	}
	return conn, nil
}

func (s *ClientSession) handleFrame(f frame) {
	if ev, ok := eventFromFrame(f); ok {
		s.emit(ev)
		return
	}
	switch f.Type {
	case framePublishAck:
		s.localAudio.Store(true)
		s.ackMu.Lock()
		if s.pubAck != nil {
			close(s.pubAck)
			s.pubAck = nil
		}
		s.ackMu.Unlock()
	case frameError:
		s.logger.Warn().Str("message", f.Message).Str("event", "rtc.server_error").Msg("gateway reported error")
	}
}
