// SPDX-License-Identifier: MIT

// Package session defines the interview session record and its storage.
package session

import (
	"fmt"
	"time"

	"github.com/voxhire/voxhire/internal/types"
)

// Question is one interview question in its fixed position.
type Question struct {
	ID   int    `json:"id"`
	Text string `json:"question"`
}

// Analysis is the LLM match analysis of resume against job description.
type Analysis struct {
	MatchScore int      `json:"match_score"`
	KeySkills  []string `json:"key_skills"`
	Gaps       []string `json:"gaps"`
	Assessment string   `json:"assessment"`
}

// TranscriptEntry is one utterance recorded during the interview.
type TranscriptEntry struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Session is the backend record of one interview, from creation to terminal
// status. The question list is fixed at creation and read-only thereafter.
type Session struct {
	ID             string              `json:"id"`
	CandidateName  string              `json:"candidate_name"`
	CandidateEmail string              `json:"candidate_email"`
	Position       string              `json:"position"`
	Questions      []Question          `json:"questions"`
	Analysis       *Analysis           `json:"analysis,omitempty"`
	Status         types.SessionStatus `json:"status"`
	RoomName       string              `json:"room_name"`
	Transcript     []TranscriptEntry   `json:"transcript,omitempty"`

	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	StatusChangedAt time.Time `json:"status_changed_at"`
}

// RoomNameFor derives the realtime room name for a session ID.
func RoomNameFor(sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return "interview_" + short
}

// TransitionTo moves the session to status, enforcing monotonic progression.
// The caller persists the returned change; terminal states never leave.
func (s *Session) TransitionTo(status types.SessionStatus, now time.Time) error {
	if s.Status == status {
		return nil
	}
	if !s.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, status)
	}
	s.Status = status
	s.StatusChangedAt = now
	s.UpdatedAt = now
	return nil
}

// AppendTranscript records an utterance on the session.
func (s *Session) AppendTranscript(speaker, text string, at time.Time) {
	s.Transcript = append(s.Transcript, TranscriptEntry{Speaker: speaker, Text: text, At: at})
	s.UpdatedAt = at
}
