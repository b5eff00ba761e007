// SPDX-License-Identifier: MIT

// Package rtc provides the realtime session layer for interviews: the
// RoomSession capability surface the controller drives, a websocket client
// implementation, the room gateway, join tokens, and the interviewer bot.
package rtc

import (
	"context"
	"errors"
)

// Well-known participant identities. Every interview room has exactly one
// of each.
const (
	IdentityCandidate   = "candidate"
	IdentityInterviewer = "interviewer"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("rtc: session closed")
	// ErrRejected is returned when the gateway refuses a join.
	ErrRejected = errors.New("rtc: join rejected")
	// ErrPermissionDenied is reported by capture probes without microphone access.
	ErrPermissionDenied = errors.New("rtc: microphone permission denied")
	// ErrDeviceNotFound is reported by capture probes with no usable device.
	ErrDeviceNotFound = errors.New("rtc: no capture device found")
)

// Event is one realtime session event. The concrete types below form the
// full set a RoomSession may emit.
type Event interface {
	eventType() string
}

// ParticipantConnectedEvent reports a remote participant in the room.
type ParticipantConnectedEvent struct{ Identity string }

// ParticipantDisconnectedEvent reports a remote participant leaving.
type ParticipantDisconnectedEvent struct{ Identity string }

// TrackSubscribedEvent reports a remote track becoming available.
type TrackSubscribedEvent struct{ Identity, Kind string }

// TrackUnsubscribedEvent reports a remote track going away.
type TrackUnsubscribedEvent struct{ Identity, Kind string }

// TranscriptEvent carries a spoken line from a remote participant.
type TranscriptEvent struct{ Identity, Text string }

// ConnectionQualityEvent reports transport quality for a participant.
type ConnectionQualityEvent struct{ Identity, Quality string }

// ReconnectingEvent signals the transport dropped and is being re-dialled.
type ReconnectingEvent struct{}

// ReconnectedEvent signals the transport recovered.
type ReconnectedEvent struct{}

// DisconnectedEvent signals the session ended and no more events follow.
type DisconnectedEvent struct{ Reason string }

func (ParticipantConnectedEvent) eventType() string    { return "participant_connected" }
func (ParticipantDisconnectedEvent) eventType() string { return "participant_disconnected" }
func (TrackSubscribedEvent) eventType() string         { return "track_subscribed" }
func (TrackUnsubscribedEvent) eventType() string       { return "track_unsubscribed" }
func (TranscriptEvent) eventType() string              { return "transcript" }
func (ConnectionQualityEvent) eventType() string       { return "connection_quality" }
func (ReconnectingEvent) eventType() string            { return "reconnecting" }
func (ReconnectedEvent) eventType() string             { return "reconnected" }
func (DisconnectedEvent) eventType() string            { return "disconnected" }

// RoomSession is a live connection to an interview room. Implementations
// must keep Events open until the session is fully torn down and must make
// Close idempotent.
type RoomSession interface {
	// PublishAudio announces the local audio track to the room and waits
	// for the gateway acknowledgement.
	PublishAudio(ctx context.Context) error
	// UnpublishAudio withdraws the local audio track.
	UnpublishAudio() error
	// LocalAudioActive reports whether the local audio track is up.
	LocalAudioActive() bool
	// Events yields room events until the session ends.
	Events() <-chan Event
	// Close tears the session down and waits for the event loop to stop.
	Close() error
}

// MicProbe checks microphone availability before a connect attempt, so
// permission and hardware failures surface separately from negotiation
// failures.
type MicProbe interface {
	Probe(ctx context.Context) error
}

// StaticProbe is a MicProbe with a fixed outcome.
type StaticProbe struct{ Err error }

func (p StaticProbe) Probe(context.Context) error { return p.Err }
