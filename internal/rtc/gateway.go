// SPDX-License-Identifier: MIT

package rtc

import (
	"errors"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/metrics"
)

const (
	helloTimeout  = 10 * time.Second
	peerSendQueue = 256
)

// Gateway is the daemon-side room fabric. It terminates /rtc/{room}
// websockets, verifies join tokens, keeps a per-room participant registry,
// and relays frames between participants. In-process participants (the
// interviewer bot) join through JoinLocal without a transport.
type Gateway struct {
	issuer   *TokenIssuer
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu    sync.Mutex
	rooms map[string]*room

	hookMu            sync.Mutex
	onCandidateJoined func(room string)
}

// NewGateway builds a gateway that verifies joins with issuer.
func NewGateway(issuer *TokenIssuer) *Gateway {
	return &Gateway{
		issuer: issuer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.WithComponent("rtc.gateway"),
		rooms:  make(map[string]*room),
	}
}

// OnCandidateJoined registers fn to run whenever the candidate identity
// joins a room. The interviewer bot hangs off this hook.
func (g *Gateway) OnCandidateJoined(fn func(room string)) {
	g.hookMu.Lock()
	g.onCandidateJoined = fn
	g.hookMu.Unlock()
}

// Rooms reports the number of rooms with at least one participant.
func (g *Gateway) Rooms() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// ServeHTTP handles one room websocket. The room name is the final path
// segment; the join token decides whether the caller may enter it.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomName := path.Base(r.URL.Path)
	if roomName == "" || roomName == "/" || roomName == "." {
		http.Error(w, "room name required", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn().Err(err).Str("event", "rtc.upgrade_failed").Msg("websocket upgrade failed")
		return
	}

	identity, err := g.handshake(conn, roomName)
	if err != nil {
		_ = conn.WriteJSON(frame{Type: frameError, Message: err.Error()})
		_ = conn.Close()
		return
	}

	p := &wsPeer{conn: conn, id: identity, send: make(chan frame, peerSendQueue)}
	rm, err := g.join(roomName, p)
	if err != nil {
		_ = conn.WriteJSON(frame{Type: frameError, Message: err.Error()})
		_ = conn.Close()
		return
	}

	if err := conn.WriteJSON(frame{
		Type:         frameHelloAck,
		Room:         roomName,
		Participants: rm.othersOf(identity),
	}); err != nil {
		g.leave(rm, p)
		_ = conn.Close()
		return
	}

	go p.writePump()

	g.logger.Info().
		Str("room", roomName).
		Str("identity", identity).
		Str("event", "rtc.participant_joined").
		Msg("participant joined")
	rm.broadcast(p, frame{Type: frameJoined, Identity: identity})
	g.fireCandidateHook(roomName, identity)

	g.readPump(rm, p)

	g.leave(rm, p)
	rm.broadcast(nil, frame{Type: frameLeft, Identity: identity})
	g.logger.Info().
		Str("room", roomName).
		Str("identity", identity).
		Str("event", "rtc.participant_left").
		Msg("participant left")
}

func (g *Gateway) handshake(conn *websocket.Conn, roomName string) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		return "", errors.New("hello expected")
	}
	_ = conn.SetReadDeadline(time.Time{})

	if hello.Type != frameHello {
		return "", errors.New("hello expected")
	}
	room, identity, err := g.issuer.Verify(hello.Token)
	if err != nil {
		return "", errors.New("invalid join token")
	}
	if room != roomName {
		return "", errors.New("token not valid for this room")
	}
	if hello.Identity != "" && hello.Identity != identity {
		return "", errors.New("identity does not match token")
	}
	return identity, nil
}

// JoinLocal adds an in-process participant to a room, creating the room if
// needed. The returned participant sees the same frames a remote peer would.
func (g *Gateway) JoinLocal(roomName, identity string) (*LocalParticipant, error) {
	lp := &LocalParticipant{
		id:     identity,
		events: make(chan Event, peerSendQueue),
	}
	rm, err := g.join(roomName, lp)
	if err != nil {
		return nil, err
	}
	lp.gateway = g
	lp.room = rm
	rm.broadcast(lp, frame{Type: frameJoined, Identity: identity})
	g.fireCandidateHook(roomName, identity)
	return lp, nil
}

func (g *Gateway) fireCandidateHook(roomName, identity string) {
	if identity != IdentityCandidate {
		return
	}
	g.hookMu.Lock()
	fn := g.onCandidateJoined
	g.hookMu.Unlock()
	if fn != nil {
		go fn(roomName)
	}
}

func (g *Gateway) join(roomName string, p peer) (*room, error) {
	g.mu.Lock()
	rm, ok := g.rooms[roomName]
	if !ok {
		rm = &room{name: roomName, peers: make(map[string]peer)}
		g.rooms[roomName] = rm
		metrics.IncGatewayRooms()
	}
	g.mu.Unlock()

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, dup := rm.peers[p.identity()]; dup {
		return nil, errors.New("identity already in room")
	}
	rm.peers[p.identity()] = p
	metrics.IncGatewayParticipants()
	return rm, nil
}

func (g *Gateway) leave(rm *room, p peer) {
	rm.mu.Lock()
	if cur, ok := rm.peers[p.identity()]; ok && cur == p {
		delete(rm.peers, p.identity())
		metrics.DecGatewayParticipants()
	}
	empty := len(rm.peers) == 0
	rm.mu.Unlock()
	p.stop()

	if empty {
		g.mu.Lock()
		if cur, ok := g.rooms[rm.name]; ok && cur == rm {
			rm.mu.Lock()
			if len(rm.peers) == 0 {
				delete(g.rooms, rm.name)
				metrics.DecGatewayRooms()
			}
			rm.mu.Unlock()
		}
		g.mu.Unlock()
	}
}

func (g *Gateway) readPump(rm *room, p *wsPeer) {
	for {
		var f frame
		if err := p.conn.ReadJSON(&f); err != nil {
			return
		}
		g.route(rm, p, f)
	}
}

// route applies one inbound frame: publish/unpublish are acknowledged and
// announced, everything else is relayed with the sender stamped.
func (g *Gateway) route(rm *room, p peer, f frame) {
	switch f.Type {
	case framePublish:
		p.deliver(frame{Type: framePublishAck, Kind: f.Kind})
		rm.broadcast(p, frame{Type: frameTrackPublished, Identity: p.identity(), Kind: f.Kind})
	case frameUnpublish:
		rm.broadcast(p, frame{Type: frameTrackUnpublished, Identity: p.identity(), Kind: f.Kind})
	case frameTranscript:
		rm.broadcast(p, frame{Type: frameTranscript, Identity: p.identity(), Text: f.Text})
	case frameAudio:
		rm.broadcast(p, frame{Type: frameAudio, Identity: p.identity(), Data: f.Data})
	case frameQuality:
		rm.broadcast(p, frame{Type: frameQuality, Identity: p.identity(), Quality: f.Quality})
	}
}

// peer is one room participant, remote or in-process.
type peer interface {
	identity() string
	deliver(f frame)
	stop()
}

type room struct {
	name string

	mu    sync.Mutex
	peers map[string]peer
}

// broadcast delivers f to every participant except from (nil = everyone).
func (r *room) broadcast(from peer, f frame) {
	r.mu.Lock()
	targets := make([]peer, 0, len(r.peers))
	for _, p := range r.peers {
		if p != from {
			targets = append(targets, p)
		}
	}
	r.mu.Unlock()
	for _, p := range targets {
		p.deliver(f)
	}
}

func (r *room) othersOf(identity string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	others := make([]string, 0, len(r.peers))
	for id := range r.peers {
		if id != identity {
			others = append(others, id)
		}
	}
	return others
}

// wsPeer is a remote participant. Outbound frames go through a buffered
// queue so one slow client never stalls a broadcast; a full queue drops.
type wsPeer struct {
	conn *websocket.Conn
	id   string

	mu     sync.Mutex
	closed bool
	send   chan frame
}

func (p *wsPeer) identity() string { return p.id }

func (p *wsPeer) deliver(f frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.send <- f:
	default:
	}
}

func (p *wsPeer) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}

func (p *wsPeer) writePump() {
	for f := range p.send {
		if err := p.conn.WriteJSON(f); err != nil {
			break
		}
	}
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(2*time.Second))
	_ = p.conn.Close()
}

// LocalParticipant is an in-process room member. The interviewer bot uses
// it to speak and listen without a websocket.
type LocalParticipant struct {
	id      string
	gateway *Gateway
	room    *room

	mu     sync.Mutex
	closed bool
	events chan Event

	leftOnce sync.Once
}

func (lp *LocalParticipant) identity() string { return lp.id }

func (lp *LocalParticipant) deliver(f frame) {
	ev, ok := eventFromFrame(f)
	if !ok {
		return
	}
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.closed {
		return
	}
	select {
	case lp.events <- ev:
	default:
	}
}

func (lp *LocalParticipant) stop() {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if !lp.closed {
		lp.closed = true
		close(lp.events)
	}
}

// Events yields room events until the participant leaves.
func (lp *LocalParticipant) Events() <-chan Event { return lp.events }

// Say broadcasts a transcript line to the room.
func (lp *LocalParticipant) Say(text string) {
	lp.room.broadcast(lp, frame{Type: frameTranscript, Identity: lp.id, Text: text})
}

// Leave removes the participant from the room and announces the departure.
func (lp *LocalParticipant) Leave() {
	lp.leftOnce.Do(func() {
		lp.gateway.leave(lp.room, lp)
		lp.room.broadcast(nil, frame{Type: frameLeft, Identity: lp.id})
	})
}
