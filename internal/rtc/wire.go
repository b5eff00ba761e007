// SPDX-License-Identifier: MIT

package rtc

// Frame types exchanged over the room websocket. The first client frame is
// always hello, answered by hello_ack or error; everything after is events
// and relayed media.
const (
	frameHello            = "hello"
	frameHelloAck         = "hello_ack"
	frameError            = "error"
	frameJoined           = "participant_joined"
	frameLeft             = "participant_left"
	framePublish          = "publish"
	framePublishAck       = "publish_ack"
	frameUnpublish        = "unpublish"
	frameTrackPublished   = "track_published"
	frameTrackUnpublished = "track_unpublished"
	frameTranscript       = "transcript"
	frameAudio            = "audio"
	frameQuality          = "connection_quality"
)

// frame is the single wire envelope. Fields are populated per Type: hello
// carries Token+Identity, hello_ack carries Room+Participants, track frames
// carry Kind, transcript carries Text, audio carries base64 Data, error
// carries Message.
type frame struct {
	Type         string   `json:"type"`
	Token        string   `json:"token,omitempty"`
	Identity     string   `json:"identity,omitempty"`
	Room         string   `json:"room,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Kind         string   `json:"kind,omitempty"`
	Text         string   `json:"text,omitempty"`
	Data         string   `json:"data,omitempty"`
	Quality      string   `json:"quality,omitempty"`
	Message      string   `json:"message,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// eventFromFrame converts a broadcast frame into its Event. Frames that are
// not room events (acks, errors, media) return ok=false.
func eventFromFrame(f frame) (Event, bool) {
	switch f.Type {
	case frameJoined:
		return ParticipantConnectedEvent{Identity: f.Identity}, true
	case frameLeft:
		return ParticipantDisconnectedEvent{Identity: f.Identity}, true
	case frameTrackPublished:
		return TrackSubscribedEvent{Identity: f.Identity, Kind: f.Kind}, true
	case frameTrackUnpublished:
		return TrackUnsubscribedEvent{Identity: f.Identity, Kind: f.Kind}, true
	case frameTranscript:
		return TranscriptEvent{Identity: f.Identity, Text: f.Text}, true
	case frameQuality:
		return ConnectionQualityEvent{Identity: f.Identity, Quality: f.Quality}, true
	default:
		return nil, false
	}
}
